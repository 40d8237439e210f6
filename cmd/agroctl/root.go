package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bigkaa/agroadmin/internal/apiclient"
	"github.com/bigkaa/agroadmin/internal/config"
	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/liststate"
	"github.com/bigkaa/agroadmin/internal/store"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// app — состояние одного запуска: Store поверх REST API и каталог представлений.
// Store создаётся в PersistentPreRunE, чтобы --help работал без конфигурации.
type app struct {
	out     io.Writer
	errOut  io.Writer
	catalog *views.Catalog
	store   *store.Store

	configPath string
	verbose    bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	catalog, err := views.Load()
	if err != nil {
		// Встроенный views.yaml проверяется тестами; ошибка здесь — ошибка сборки.
		panic(err)
	}
	a.catalog = catalog

	root := &cobra.Command{
		Use:           "agroctl",
		Short:         "Administración de bodegas y temporadas",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "archivo de configuración YAML")
	flags.String("api-url", "", "URL base del API (AGROCTL_API_URL)")
	flags.String("api-token", "", "token bearer del API (AGROCTL_API_TOKEN)")
	flags.Duration("timeout", 0, "timeout de las peticiones al API")
	flags.Int("page-size", 10, "tamaño de página por defecto")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "registro detallado en stderr")

	warehouses, _ := catalog.View(model.EntityWarehouses)
	seasons, _ := catalog.View(model.EntitySeasons)
	root.AddCommand(
		newEntityCmd(a, warehouses, func(st *store.Store) *liststate.Synchronizer[model.Warehouse] { return st.Warehouses }),
		newEntityCmd(a, seasons, func(st *store.Store) *liststate.Synchronizer[model.Season] { return st.Seasons }),
	)
	return root
}

// open загружает конфигурацию и создаёт Store. Для корневой команды
// и справки ничего не создаётся.
func (a *app) open(cmd *cobra.Command) error {
	if !cmd.Runnable() || cmd.Name() == "help" {
		return nil
	}

	cfg, err := loadConfig(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}

	level := slog.LevelError
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: level}))

	client, err := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIURL,
		Token:      cfg.APIToken,
		Timeout:    cfg.Timeout,
		CACertPath: cfg.CACert,
		PageSize:   cfg.PageSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("cliente del API: %w", err)
	}

	a.store = store.New("cli", cfg.User, store.NewBackends(client), store.Options{PageSize: cfg.PageSize}, logger)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}
