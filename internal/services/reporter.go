package services

import (
	"log"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards unexpected failures to an error tracker.
type Reporter interface {
	Error(err error, extras map[string]interface{})
	Close()
}

type nopReporter struct{}

func (nopReporter) Error(error, map[string]interface{}) {}
func (nopReporter) Close()                              {}

type RollbarReporter struct{}

// NewReporter returns a Rollbar reporter when token is set, and a no-op
// reporter otherwise.
func NewReporter(token, environment string) Reporter {
	if token == "" {
		return nopReporter{}
	}

	rollbar.SetToken(token)
	rollbar.SetEnvironment(environment)
	rollbar.SetServerRoot("github.com/felicity-dev/felicity")
	log.Printf("Rollbar reporting enabled for %s", environment)

	return RollbarReporter{}
}

func (RollbarReporter) Error(err error, extras map[string]interface{}) {
	if extras == nil {
		rollbar.Error(err)
		return
	}
	rollbar.Error(err, extras)
}

func (RollbarReporter) Close() {
	rollbar.Wait()
}
