package store

import "testing"

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store[testDoc] {
		st, err := NewSQLiteStore[testDoc](":memory:")
		if err != nil {
			t.Fatalf("NewSQLiteStore failed: %v", err)
		}
		t.Cleanup(func() { _ = st.Close() })
		return st
	})
}
