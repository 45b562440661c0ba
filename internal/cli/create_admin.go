package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/quizhub-backend/internal/config"
	"github.com/stemsi/quizhub-backend/internal/database"
	"github.com/stemsi/quizhub-backend/internal/logger"
	"github.com/stemsi/quizhub-backend/internal/model"
	"github.com/stemsi/quizhub-backend/internal/repository"
	"github.com/stemsi/quizhub-backend/internal/service"
	"golang.org/x/term"
)

func newCreateAdminCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create-admin",
		Short: "Create an approved administrator account interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

			pool, err := database.NewPostgresPool(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("connect to PostgreSQL: %w", err)
			}
			defer pool.Close()

			accounts := repository.NewAccountRepository(pool)
			auth := service.NewAuthService(cfg, accounts, log)

			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())
			fmt.Fprintln(out, "=== Create New Admin ===")

			name, err := prompt(out, reader, "Name")
			if err != nil {
				return err
			}
			roll, err := prompt(out, reader, "Roll number")
			if err != nil {
				return err
			}
			department, err := prompt(out, reader, "Department")
			if err != nil {
				return err
			}
			password, err := readPassword(out, "Password")
			if err != nil {
				return err
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			admin := &model.Account{
				RollNumber:   roll,
				Name:         name,
				PasswordHash: hash,
				Role:         model.RoleAdmin,
				Department:   department,
				IsApproved:   true,
			}
			if err := accounts.Create(ctx, admin); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("roll number %q is already registered", roll)
				}
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Fprintf(out, "\nSuccess! Admin %q (%s) created with ID %s\n", admin.Name, admin.RollNumber, admin.ID)
			return nil
		},
	}
}

func prompt(out io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(out io.Writer, label string) (string, error) {
	fmt.Fprintf(out, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
