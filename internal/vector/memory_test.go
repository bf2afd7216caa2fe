package vector

import (
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add([]string{"a", "b", "c"}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("got %v", results)
	}
	if results[1].Position != 1 {
		t.Errorf("Position = %d", results[1].Position)
	}

	all, _ := idx.Search([]float32{1, 0, 0}, 10)
	if len(all) != 3 {
		t.Errorf("k larger than size should return all, got %d", len(all))
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	_ = idx.Add([]string{"low", "t1", "t2", "t3"}, [][]float32{{0, 1}, {1, 0}, {1, 0}, {1, 0}})
	for run := 0; run < 5; run++ {
		results, err := idx.Search([]float32{1, 0}, 3)
		if err != nil {
			t.Fatal(err)
		}
		if results[0].ID != "t1" || results[1].ID != "t2" || results[2].ID != "t3" {
			t.Fatalf("tied hits out of insertion order: %v", results)
		}
	}
}

func TestMemoryIndex_Errors(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimensions")
	}
	idx, _ := NewMemoryIndex(2)
	if err := idx.Add([]string{"a"}, [][]float32{{1, 2, 3}}); err == nil {
		t.Error("expected dimension mismatch on Add")
	}
	if err := idx.Add([]string{"a", "b"}, [][]float32{{1, 2}}); err == nil {
		t.Error("expected length mismatch on Add")
	}
	if idx.Size() != 0 {
		t.Error("failed Add should not insert anything")
	}
	if _, err := idx.Search([]float32{1}, 1); err == nil {
		t.Error("expected dimension mismatch on Search")
	}
	if res, err := idx.Search([]float32{1, 0}, 1); err != nil || res != nil {
		t.Errorf("empty index: %v, %v", res, err)
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("InnerProduct = %f", got)
	}
	if InnerProduct([]float32{1}, []float32{1, 2}) != 0 {
		t.Error("mismatched lengths should score 0")
	}
	if InnerProduct(nil, nil) != 0 {
		t.Error("empty vectors should score 0")
	}
}
