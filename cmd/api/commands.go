package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhoicas/stock-transfer-api/internal/application/auth"
	"github.com/jhoicas/stock-transfer-api/internal/application/dto"
	"github.com/jhoicas/stock-transfer-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-transfer-api/pkg/config"
	"github.com/jhoicas/stock-transfer-api/pkg/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stock-transfer-api",
		Short:         "API de traslados de stock entre sedes",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Sin subcomando se levanta el servidor.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes y termina",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
			if err := postgres.Migrate(cfg.DB.ConnectionString(), log.Component("migrate")); err != nil {
				return fmt.Errorf("migrar base de datos: %w", err)
			}
			return nil
		},
	}
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Administración de usuarios",
	}

	var in dto.CreateUserRequest
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario (no hay registro público)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return createUser(cmd.Context(), in)
		},
	}
	createCmd.Flags().StringVar(&in.Email, "email", "", "email del usuario")
	createCmd.Flags().StringVar(&in.Password, "password", "", "password en texto plano (mínimo 8 caracteres)")
	createCmd.Flags().StringVar(&in.Role, "role", "staff", "rol: admin, manager o staff")
	_ = createCmd.MarkFlagRequired("email")
	_ = createCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createCmd)
	return userCmd
}

func createUser(ctx context.Context, in dto.CreateUserRequest) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()

	uc := auth.NewAuthUseCase(
		postgres.NewUserRepository(pool),
		postgres.NewRefreshTokenRepository(pool),
		nil,
		jwtConfig(cfg),
		log.Component("auth"),
	)
	user, err := uc.CreateUser(ctx, in)
	if err != nil {
		return fmt.Errorf("crear usuario: %w", err)
	}
	log.Info().Int64("user_id", user.ID).Str("email", user.Email).Str("role", user.Role).Msg("usuario creado")
	return nil
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
		Rotation:      cfg.JWT.RefreshRotation,
	}
}
