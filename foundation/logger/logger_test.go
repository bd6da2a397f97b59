package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/argonprotocol/argon/foundation/logger"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_EventHandler(t *testing.T) {
	t.Log("Given the need to log the events of the blockchain packages.")
	{
		path := filepath.Join(t.TempDir(), "node.log")

		log, err := logger.New("NODE-TEST", path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a logger: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to construct a logger.", success)

		var got []string
		ev := logger.EventHandler(log, func(s string) { got = append(got, s) })

		ev("audit: Submit: notary[%d] notebook[%d]: accepted", 1, 7)
		log.Sync()

		if len(got) != 1 || got[0] != "audit: Submit: notary[1] notebook[7]: accepted" {
			t.Fatalf("\t%s\tShould hand the formatted event to the sinks: %v", failed, got)
		}
		t.Logf("\t%s\tShould hand the formatted event to the sinks.", success)

		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to read the log: %v", failed, err)
		}
		if !strings.Contains(string(content), `"service":"NODE-TEST"`) || !strings.Contains(string(content), "notebook[7]") {
			t.Fatalf("\t%s\tShould write the event to the log: %s", failed, content)
		}
		t.Logf("\t%s\tShould write the event to the log.", success)
	}
}
