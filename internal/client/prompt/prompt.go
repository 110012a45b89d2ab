// Package prompt reads interactive input from the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atinyakov/gophlogin/internal/models"
	"golang.org/x/term"
)

// Swapped in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// Line prints label to out and reads one line from in, trimmed.
// Reaching end of input before any character is an error.
func Line(in io.Reader, out io.Writer, label string) (string, error) {
	return readLine(asBuffered(in), out, label)
}

// Credentials asks for an email and a password, one line each.
// When in is a terminal the password is read with echo disabled.
func Credentials(in io.Reader, out io.Writer) (models.Credentials, error) {
	r := asBuffered(in)

	email, err := readLine(r, out, "Email: ")
	if err != nil {
		return models.Credentials{}, fmt.Errorf("read email: %w", err)
	}

	var password string
	if fd, ok := terminalFd(in); ok {
		password, err = readHidden(fd, out, "Password: ")
	} else {
		password, err = readLine(r, out, "Password: ")
	}
	if err != nil {
		return models.Credentials{}, fmt.Errorf("read password: %w", err)
	}
	return models.Credentials{Email: email, Password: password}, nil
}

// fileDescriptor is satisfied by *os.File.
type fileDescriptor interface {
	Fd() uintptr
}

func terminalFd(in io.Reader) (int, bool) {
	f, ok := in.(fileDescriptor)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, isTerminal(fd)
}

func readHidden(fd int, out io.Writer, label string) (string, error) {
	if out != nil {
		fmt.Fprint(out, label)
	}
	b, err := readPassword(fd)
	if out != nil {
		// echo is off, so the user's Enter never reached the screen
		fmt.Fprintln(out)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// asBuffered reuses an existing buffer so consecutive reads on the same
// reader do not lose input.
func asBuffered(in io.Reader) *bufio.Reader {
	if br, ok := in.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(in)
}

func readLine(r *bufio.Reader, out io.Writer, label string) (string, error) {
	if out != nil {
		fmt.Fprint(out, label)
	}
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
