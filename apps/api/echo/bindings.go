package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/form"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// createDraft opens a creation draft over defaults, fills it with the request body and commits it to store.
// Validation happens in store, through the service.
func createDraft[F, E any](ctx echo.Context, defaults F, store func(F) (E, error)) (E, error) {
	var created E
	d, err := form.New(defaults)
	if err != nil {
		return created, err
	}
	if err = ctx.Bind(&d.Fields); err != nil {
		return created, errors.Wrap(err, "binding fields")
	}
	err = d.Commit(nil, func(f F) error {
		var sErr error
		created, sErr = store(f)
		return sErr
	})
	return created, err
}

// editDraft opens an edition draft over the fields of current and merges the request body into it.
// The draft is committed to store only when the body changed something; otherwise current is returned as is.
func editDraft[F, E any](ctx echo.Context, current E, fields F, store func(F) (E, error)) (E, error) {
	d, err := form.Edit(fields)
	if err != nil {
		return current, err
	}
	if err = ctx.Bind(&d.Fields); err != nil {
		return current, errors.Wrap(err, "binding fields")
	}
	if !d.Dirty() {
		d.Cancel()
		return current, nil
	}

	updated := current
	err = d.Commit(nil, func(f F) error {
		var sErr error
		updated, sErr = store(f)
		return sErr
	})
	return updated, err
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	PublishRequest struct {
		Published bool `json:"published"`
	}

	ReorderRequest struct {
		IDs []string `json:"ids"`
	}
)
