package nvstore

import "testing"

type bdtRecord struct {
	Mask string `json:"mask"`
}

func TestMemStorePutGetDelete(t *testing.T) {
	s := NewMemStore()
	if err := s.Put(BucketBDT, "10.0.0.1:47808", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	v, ok, err := s.Get(BucketBDT, "10.0.0.1:47808")
	if err != nil || !ok || string(v) != "x" {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := s.Delete(BucketBDT, "10.0.0.1:47808"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(BucketBDT, "10.0.0.1:47808"); ok {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestMemStoreForEachIteratesAllKeys(t *testing.T) {
	s := NewMemStore()
	s.Put(BucketRoutes, "40", []byte("a"))
	s.Put(BucketRoutes, "50", []byte("b"))

	seen := make(map[string]string)
	err := s.ForEach(BucketRoutes, func(key string, value []byte) error {
		seen[key] = string(value)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(seen) != 2 || seen["40"] != "a" || seen["50"] != "b" {
		t.Fatalf("seen = %v", seen)
	}
}

func TestPutJSONGetJSONRoundTrip(t *testing.T) {
	s := NewMemStore()
	if err := PutJSON(s, BucketBDT, "peer", bdtRecord{Mask: "255.255.255.0"}); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var got bdtRecord
	ok, err := GetJSON(s, BucketBDT, "peer", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON: ok=%v err=%v", ok, err)
	}
	if got.Mask != "255.255.255.0" {
		t.Fatalf("got = %+v", got)
	}
}

func TestEnsureRouterIDPersistsAcrossCalls(t *testing.T) {
	s := NewMemStore()
	first, err := EnsureRouterID(s)
	if err != nil {
		t.Fatalf("EnsureRouterID: %v", err)
	}
	if first == "" {
		t.Fatal("expected a non-empty router id")
	}
	second, err := EnsureRouterID(s)
	if err != nil {
		t.Fatalf("EnsureRouterID (second call): %v", err)
	}
	if first != second {
		t.Fatalf("router id changed across calls: %q != %q", first, second)
	}
}

func TestGetJSONMissingKeyReturnsFalse(t *testing.T) {
	s := NewMemStore()
	var got bdtRecord
	ok, err := GetJSON(s, BucketBDT, "missing", &got)
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v, want false,nil", ok, err)
	}
}
