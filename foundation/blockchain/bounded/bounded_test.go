package bounded_test

import (
	"errors"
	"testing"

	"github.com/argonprotocol/argon/foundation/blockchain/bounded"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Vec(t *testing.T) {
	t.Log("Given the need to cap the number of values held.")
	{
		t.Logf("\tTest 0:\tWhen pushing past the limit.")
		{
			v := bounded.NewVec[int]("votes", 2)

			if err := v.Push(1); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to push the first value: %v", failed, err)
			}
			if err := v.Push(2); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to push the second value: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to push up to the limit.", success)

			err := v.Push(3)
			if !errors.Is(err, bounded.ErrCapacityExceeded) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrCapacityExceeded, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrCapacityExceeded.", success)

			if v.Len() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould still hold 2 values, got %d.", failed, v.Len())
			}
			t.Logf("\t%s\tTest 0:\tShould still hold 2 values.", success)
		}

		t.Logf("\tTest 1:\tWhen constructing from a slice.")
		{
			if _, err := bounded.FromSlice("changes", 2, []int{1, 2, 3}); !errors.Is(err, bounded.ErrCapacityExceeded) {
				t.Fatalf("\t%s\tTest 1:\tShould reject a slice over the limit, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a slice over the limit.", success)

			v, err := bounded.FromSlice("changes", 3, []int{1, 2, 3})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept a slice at the limit: %v", failed, err)
			}

			values := v.Values()
			values[0] = 100
			if v.Values()[0] != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould return a copy of the values.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould return a copy of the values.", success)
		}
	}
}

func Test_Set(t *testing.T) {
	s := bounded.NewSet[string]("domains", 2)

	if added, err := s.Insert("a"); err != nil || !added {
		t.Fatalf("Should be able to insert a key: %v %v", added, err)
	}

	if added, err := s.Insert("a"); err != nil || added {
		t.Fatalf("Should report a duplicate key without error: %v %v", added, err)
	}

	if _, err := s.Insert("b"); err != nil {
		t.Fatalf("Should be able to insert a second key: %s", err)
	}

	if _, err := s.Insert("c"); !errors.Is(err, bounded.ErrCapacityExceeded) {
		t.Fatalf("Should get ErrCapacityExceeded, got %v.", err)
	}

	keys := s.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("Should get keys in insertion order, got %v.", keys)
	}
}
