package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrEmptyPassword is returned when the user enters nothing.
var ErrEmptyPassword = errors.New("empty password")

// ReadPassword prompts on stderr and reads a line without echo. When stdin
// is not a terminal the line is read as-is, which keeps pipes working.
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if len(b) == 0 {
		return "", ErrEmptyPassword
	}
	return string(b), nil
}

// NewPassword asks for a password twice and checks that both match.
func NewPassword() (string, error) {
	pw, err := ReadPassword("New wallet password: ")
	if err != nil {
		return "", err
	}
	again, err := ReadPassword("Repeat password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", ErrEmptyPassword
	}
	return line, nil
}
