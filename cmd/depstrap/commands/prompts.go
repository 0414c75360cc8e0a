package commands

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/depstrap/depstrap/depstrap/commandmanager"
)

func (c *CLI) readCredentials(f *installFlags) (commandmanager.Credentials, error) {
	creds := commandmanager.Credentials{User: f.Username}

	if f.PasswordPrompt {
		password, err := readSecret("Enter the SSH password: ")
		if err != nil {
			return creds, err
		}
		creds.Password = password
	}

	if f.KeyPassPrompt {
		keyPass, err := readSecret("Enter the key passphrase: ")
		if err != nil {
			return creds, err
		}
		creds.KeyPassphrase = keyPass
	}

	if f.SudoPasswordPrompt {
		sudoPassword, err := readSecret("Enter the sudo password: ")
		if err != nil {
			return creds, err
		}
		creds.SudoPassword = sudoPassword
	}

	return creds, nil
}

func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return string(secret), nil
}
