// Package proctor holds the violation policy shared by the server and the quiz session client.
package proctor

import "github.com/stemsi/quizhub-backend/internal/model"

// WarningsBeforeSubmit is how many violations are tolerated with a warning.
const WarningsBeforeSubmit = 1

// Decide maps a running violation count to the action the client must take:
// warn on the first, force submission from the second on.
func Decide(count int64) model.ViolationAction {
	if count <= WarningsBeforeSubmit {
		return model.ViolationActionWarn
	}
	return model.ViolationActionSubmit
}
