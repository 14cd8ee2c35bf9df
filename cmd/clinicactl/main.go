package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/db"
	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/service"
)

// operador usado nas ações administrativas feitas pela CLI
var cliPrincipal = auth.Principal{Username: "clinicactl", Name: "clinicactl", Role: auth.RoleAdmin}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "clinicactl",
		Short:         "Ferramentas de operação do CRM da clínica",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("dsn", "", "DSN do Postgres (padrão: DATABASE_URL ou DB_DSN)")

	root.AddCommand(migrateCmd())
	root.AddCommand(usersCmd())
	root.AddCommand(proceduresCmd())
	root.AddCommand(hashpassCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("clinicactl")
	}
}

func openPool(cmd *cobra.Command) (*pgxpool.Pool, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DB_DSN"))
	}
	if dsn == "" {
		return nil, errors.New("defina --dsn, DATABASE_URL ou DB_DSN")
	}
	return db.NewPool(cmd.Context(), dsn, 2)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrações do banco",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Aplica migrações pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.NewMigrator(pool).Up(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int("aplicadas", applied).Msg("migrações concluídas")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Lista migrações aplicadas e pendentes",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool).Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range statuses {
				applied := "pendente"
				if st.AppliedAt != nil {
					applied = st.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%03d  %-30s  %s\n", st.Version, st.Name, applied)
			}
			return nil
		},
	})
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Gestão de usuários",
	}

	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Cria o primeiro administrador",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}

			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			clinic := service.NewClinicService(service.NewStore(repo.New(pool)), nil, nil)
			user, err := clinic.CreateUser(cmd.Context(), cliPrincipal, service.CreateUserInput{
				Username: username,
				Password: password,
				Name:     name,
				Role:     repo.RoleAdmin,
			})
			if err != nil {
				return describe(err)
			}
			log.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("administrador criado")
			return nil
		},
	}
	createAdmin.Flags().String("username", "admin", "login do administrador")
	createAdmin.Flags().String("name", "Administrador", "nome exibido")
	createAdmin.Flags().String("password", "", "senha (padrão: ADMIN_PASSWORD)")
	cmd.AddCommand(createAdmin)
	return cmd
}

func proceduresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "procedures",
		Short: "Rotinas de procedimentos",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Marca como expirados os procedimentos vencidos",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := openPool(cmd)
			if err != nil {
				return err
			}
			defer pool.Close()

			clinic := service.NewClinicService(service.NewStore(repo.New(pool)), nil, nil)
			n, err := clinic.ExpireProcedures(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().Int64("expirados", n).Msg("procedimentos atualizados")
			return nil
		},
	})
	return cmd
}

func hashpassCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hashpass <senha>",
		Short: "Gera hash argon2id de uma senha",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

// describe expande os itens de validação na mensagem de erro.
func describe(err error) error {
	var verr *service.ValidationError
	if !errors.As(err, &verr) || len(verr.Issues) == 0 {
		return err
	}
	parts := make([]string, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Errorf("%s (%s)", verr.Message, strings.Join(parts, "; "))
}
