package social

import (
	"context"
	"fmt"
	"io"

	"github.com/atinyakov/gophlogin/internal/client/prompt"
)

// PromptSDK is a terminal stand-in for a provider SDK: the user completes
// the provider flow elsewhere and pastes the resulting token. An empty
// line cancels.
type PromptSDK struct {
	Provider string
	In       io.Reader
	Out      io.Writer
}

// Login prompts for the token and calls cb synchronously.
func (p PromptSDK) Login(ctx context.Context, cb Callback) {
	if err := ctx.Err(); err != nil {
		cb(err, nil)
		return
	}
	label := fmt.Sprintf("Paste the %s access token (empty to cancel): ", p.Provider)
	token, err := prompt.Line(p.In, p.Out, label)
	if err != nil {
		cb(err, nil)
		return
	}
	if token == "" {
		cb(nil, &Result{IsCancelled: true})
		return
	}
	cb(nil, &Result{AccessToken: token})
}
