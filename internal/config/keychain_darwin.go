//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os/exec"
)

// security exits with 44 when the item does not exist.
const securityItemNotFound = 44

func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
	if isItemNotFound(err) {
		return nil, errSecretNotFound
	}
	return out, err
}

func keychainSet(service, account, value string) error {
	out, err := exec.Command(
		"security", "add-generic-password",
		"-U",
		"-s", service,
		"-a", account,
		"-w", value,
	).CombinedOutput()
	if err != nil {
		return fmt.Errorf("storing %s/%s in keychain: %w, output: %s", service, account, err, out)
	}
	return nil
}

func keychainDelete(service, account string) error {
	err := exec.Command(
		"security", "delete-generic-password",
		"-s", service,
		"-a", account,
	).Run()
	if err != nil && !isItemNotFound(err) {
		return fmt.Errorf("deleting %s/%s from keychain: %w", service, account, err)
	}
	return nil
}

func isItemNotFound(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == securityItemNotFound
}
