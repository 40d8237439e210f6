package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/agroadmin/internal/domain/model"
	"github.com/bigkaa/agroadmin/internal/liststate"
	"github.com/bigkaa/agroadmin/internal/store"
	"github.com/bigkaa/agroadmin/internal/ui/table"
	"github.com/bigkaa/agroadmin/internal/ui/views"
)

// record — запись, поля которой доступны по ключу.
type record[T any] interface {
	model.Entity[T]
	model.FieldSource
}

// entityCmd — команды одной сущности поверх её Synchronizer.
type entityCmd[T record[T]] struct {
	app     *app
	view    views.View
	columns []table.Column[T]
	sync    func(st *store.Store) *liststate.Synchronizer[T]
}

func newEntityCmd[T record[T]](a *app, view views.View, sync func(*store.Store) *liststate.Synchronizer[T]) *cobra.Command {
	e := &entityCmd[T]{
		app:     a,
		view:    view,
		columns: views.Columns[T](view),
		sync:    sync,
	}

	cmd := &cobra.Command{
		Use:   view.Entity,
		Short: view.Title,
	}
	cmd.AddCommand(
		e.listCmd(),
		e.createCmd(),
		e.updateCmd(),
		e.actionCmd("archive", "Archivar", liststate.OpArchive),
		e.actionCmd("restore", "Restaurar", liststate.OpRestore),
		e.actionCmd("delete", "Eliminar", liststate.OpDelete),
	)
	return cmd
}

func (e *entityCmd[T]) listCmd() *cobra.Command {
	var (
		status  string
		page    int
		filters []string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Listar " + strings.ToLower(e.view.Title),
		Example: fmt.Sprintf("  agroctl %[1]s list\n  agroctl %[1]s list --estado archivadas --page 2\n  agroctl %[1]s list --filter nombre=norte",
			e.view.Entity),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, ok := model.ParseStatus(status)
			if !ok {
				return fmt.Errorf("estado desconocido %q (activas, archivadas, todas)", status)
			}
			values, err := parsePairs(filters)
			if err != nil {
				return err
			}

			s := e.sync(e.app.store)
			s.Navigate(st, e.view.FilterValues(values), 0)
			s.Navigate("", nil, page)
			if err := s.Sync(cmd.Context()); err != nil {
				return err
			}

			state := s.State()
			if state.Error != "" {
				return errors.New(state.Error)
			}
			e.printList(state)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "estado", string(model.StatusActive), "activas, archivadas o todas")
	cmd.Flags().IntVar(&page, "page", 1, "número de página")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "filtro clave=valor (repetible)")
	return cmd
}

func (e *entityCmd[T]) createCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Crear " + strings.ToLower(e.view.Singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			values, err := parsePairs(sets)
			if err != nil {
				return err
			}
			payload, fieldErrs := e.view.Payload(values)
			if len(fieldErrs) > 0 {
				return e.validationError(fieldErrs, nil)
			}

			item, err := e.sync(e.app.store).Create(cmd.Context(), payload)
			e.printNotifications()
			if err != nil {
				return e.mutationError(err)
			}
			fmt.Fprintf(e.app.out, "ID %d\n", item.RecordID())
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "campo clave=valor (repetible)")
	return cmd
}

func (e *entityCmd[T]) updateCmd() *cobra.Command {
	var sets []string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Modificar " + strings.ToLower(e.view.Singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			values, err := parsePairs(sets)
			if err != nil {
				return err
			}
			if len(values) == 0 {
				return errors.New("indique al menos un campo con --set clave=valor")
			}
			payload, fieldErrs := e.view.PatchPayload(values)
			if len(fieldErrs) > 0 {
				return e.validationError(fieldErrs, nil)
			}

			_, err = e.sync(e.app.store).Update(cmd.Context(), id, payload)
			e.printNotifications()
			if err != nil {
				return e.mutationError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "campo clave=valor (repetible)")
	return cmd
}

// actionCmd — archive, restore и delete: одна запись по ID без тела.
func (e *entityCmd[T]) actionCmd(use, short, op string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short + " " + strings.ToLower(e.view.Singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s := e.sync(e.app.store)
			switch op {
			case liststate.OpArchive:
				_, err = s.Archive(cmd.Context(), id)
			case liststate.OpRestore:
				_, err = s.Restore(cmd.Context(), id)
			default:
				err = s.Delete(cmd.Context(), id)
			}
			e.printNotifications()
			if err != nil {
				return e.mutationError(err)
			}
			return nil
		},
	}
}

// mutationError дополняет уведомление об отказе ошибками по полям.
// Сообщение уже напечатано, поэтому ошибка помечается как reported.
func (e *entityCmd[T]) mutationError(err error) error {
	var mErr *liststate.MutationError
	if errors.As(err, &mErr) && mErr.IsValidation() {
		printFieldErrors(e.app.errOut, e.view, mErr.FieldErrors, mErr.FormErrors)
	}
	return reported{err}
}

// validationError — локальная проверка значений --set до запроса к API.
func (e *entityCmd[T]) validationError(fieldErrs map[string][]string, formErrs []string) error {
	printFieldErrors(e.app.errOut, e.view, fieldErrs, formErrs)
	return reported{errors.New("datos no válidos")}
}

func (e *entityCmd[T]) printList(state liststate.State[T]) {
	printTable(e.app.out, table.Props[T]{
		Items:        state.Items,
		Page:         state.Page,
		PageSize:     state.Meta.PageSize,
		Count:        state.Meta.Count,
		Columns:      e.columns,
		Field:        table.FieldOf[T](),
		EmptyMessage: e.view.Empty,
	})
}

func (e *entityCmd[T]) printNotifications() {
	printNotifications(e.app.out, e.app.store.Inbox.Drain())
}

// parsePairs разбирает значения вида clave=valor.
func parsePairs(pairs []string) (url.Values, error) {
	values := make(url.Values, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("se esperaba clave=valor, se recibió %q", p)
		}
		values.Set(key, value)
	}
	return values, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("ID no válido: %q", raw)
	}
	return id, nil
}
