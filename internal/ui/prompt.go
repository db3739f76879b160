package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/cephinstaller/envstep/internal/environment"
)

// ErrCancelled is returned when the user aborts a prompt.
var ErrCancelled = errors.New("cancelled by user")

// PromptCredentials asks for the RHN user name and password. Values already
// set are used as the initial input.
func PromptCredentials(ctx context.Context, creds *environment.Credentials) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("RHN User").
				Description(strings.ReplaceAll(environment.CredentialsTooltip, "\n", " ")).
				CharLimit(environment.MaxUsernameLength).
				Value(&creds.Username).
				Validate(validateUsername),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(validateRequired("password")),
		).Title("Red Hat Credentials"),
	).RunWithContext(ctx)
	return wrapAbort(err)
}

// Confirm asks a yes/no question. Defaults to yes.
func Confirm(ctx context.Context, title, description string) (bool, error) {
	ok := true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).RunWithContext(ctx)
	if err != nil {
		return false, wrapAbort(err)
	}
	return ok, nil
}

func validateUsername(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("user name is required")
	}
	if len(s) > environment.MaxUsernameLength {
		return fmt.Errorf("user name must be at most %d characters", environment.MaxUsernameLength)
	}
	return nil
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func wrapAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}
