package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/frib-high-level-controls/save-set-restore/internal/repo"

	"golang.org/x/term"
)

const (
	envUsername = "SSR_USERNAME"
	envPassword = "SSR_PASSWORD"
)

var errNoCredentials = errors.New("remote requires credentials: set SSR_USERNAME and SSR_PASSWORD or run in a terminal")

// promptCredentials 在远程要求认证时提供凭据：优先读取环境变量，
// 环境变量已被拒绝或未设置时，在终端上交互询问。
type promptCredentials struct {
	in       *os.File
	out      io.Writer
	getenv   func(string) string
	terminal func(fd int) bool
	password func(fd int) ([]byte, error)
}

func newPromptCredentials() *promptCredentials {
	return &promptCredentials{
		in:       os.Stdin,
		out:      os.Stderr,
		getenv:   os.Getenv,
		terminal: term.IsTerminal,
		password: term.ReadPassword,
	}
}

func (p *promptCredentials) Credentials(ctx context.Context, previous *repo.Credentials) (repo.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return repo.Credentials{}, err
	}

	env := repo.Credentials{Username: p.getenv(envUsername), Password: p.getenv(envPassword)}
	if env.Username != "" && (previous == nil || *previous != env) {
		return env, nil
	}

	fd := int(p.in.Fd())
	if !p.terminal(fd) {
		return repo.Credentials{}, errNoCredentials
	}

	if previous != nil {
		fmt.Fprintln(p.out, "Authentication failed, try again.")
	}
	fmt.Fprint(p.out, "Username: ")
	user, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return repo.Credentials{}, fmt.Errorf("read username: %w", err)
	}
	fmt.Fprint(p.out, "Password: ")
	pass, err := p.password(fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return repo.Credentials{}, fmt.Errorf("read password: %w", err)
	}
	return repo.Credentials{Username: strings.TrimSpace(user), Password: string(pass)}, nil
}
