package events_test

import (
	"fmt"
	"testing"

	"github.com/argonprotocol/argon/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan events out to listeners.")
	{
		evts := events.New()

		a := evts.Acquire("a")
		b := evts.Acquire("b")
		if evts.Listeners() != 2 {
			t.Fatalf("\t%s\tShould register both listeners: %d", failed, evts.Listeners())
		}
		t.Logf("\t%s\tShould register both listeners.", success)

		if again := evts.Acquire("a"); again != a {
			t.Fatalf("\t%s\tShould return the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould return the same channel for the same id.", success)

		evts.Send("notebook 1 accepted")
		if msg := <-a; msg != "notebook 1 accepted" {
			t.Fatalf("\t%s\tShould deliver the event to the first listener: %q", failed, msg)
		}
		if msg := <-b; msg != "notebook 1 accepted" {
			t.Fatalf("\t%s\tShould deliver the event to the second listener: %q", failed, msg)
		}
		t.Logf("\t%s\tShould deliver the event to every listener.", success)

		for i := 0; i < 105; i++ {
			evts.Send(fmt.Sprintf("event %d", i))
		}

		dropped, err := evts.Release("a")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to release a listener: %v", failed, err)
		}
		if dropped != 5 {
			t.Fatalf("\t%s\tShould count the events a slow listener missed: %d", failed, dropped)
		}
		t.Logf("\t%s\tShould count the events a slow listener missed.", success)

		if _, ok := <-a; !ok {
			t.Fatalf("\t%s\tShould keep buffered events after release.", failed)
		}

		if _, err := evts.Release("a"); err == nil {
			t.Fatalf("\t%s\tShould not release a listener twice.", failed)
		}
		t.Logf("\t%s\tShould not release a listener twice.", success)

		evts.Shutdown()
		for range b {
		}
		if evts.Listeners() != 0 {
			t.Fatalf("\t%s\tShould close every listener on shutdown.", failed)
		}
		t.Logf("\t%s\tShould close every listener on shutdown.", success)
	}
}
