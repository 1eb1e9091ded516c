package echoapi

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/export"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/core/user"
)

type exportApi struct {
	sources report.Sources
	userSvc *user.Service
	mailSvc core.EmailService
}

func registerExportAPI(g *echo.Group, jwt echo.MiddlewareFunc, sources report.Sources, userSvc *user.Service, mailSvc core.EmailService) {
	api := exportApi{sources: sources, userSvc: userSvc, mailSvc: mailSvc}

	eg := g.Group("/exports", jwt, allow(access.ActionExport))
	eg.GET("", api.datasets)
	eg.GET("/:dataset", api.download)
	eg.POST("/:dataset/mail", api.mail)
}

func (api *exportApi) datasets(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, report.Names())
}

// render collects the requested dataset and renders it in the format given by the "format" query param.
func (api *exportApi) render(ctx echo.Context, p access.Principal) (*core.Attachment, error) {
	format := ctx.QueryParam("format")
	if format == "" {
		format = export.FormatCSV
	}
	ds, err := api.sources.Dataset(ctx.Request().Context(), p, ctx.Param("dataset"))
	if err != nil {
		return nil, err
	}
	filename, contentType, err := ds.Filename(format, core.NowFunc())
	if err != nil {
		return nil, err
	}
	buf, err := ds.Render(format)
	if err != nil {
		return nil, errors.Wrap(err, "rendering dataset")
	}
	return &core.Attachment{Content: buf, ContentType: contentType, Filename: filename}, nil
}

// download sends the dataset as an attachment.
func (api *exportApi) download(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	file, err := api.render(ctx, p)
	if err != nil {
		return errors.Wrap(err, "exporting dataset")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	return ctx.Stream(http.StatusOK, file.ContentType, file.Content)
}

// mail emails the dataset to the requesting user.
func (api *exportApi) mail(ctx echo.Context) error {
	p, err := principal(ctx)
	if err != nil {
		return err
	}
	usr, err := api.userSvc.GetByID(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	file, err := api.render(ctx, p)
	if err != nil {
		return errors.Wrap(err, "exporting dataset")
	}

	msg := &core.EmailMessage{
		To:         []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:    fmt.Sprintf("%s export", ctx.Param("dataset")),
		BodyStr:    fmt.Sprintf("Hi %s,\n\nPlease find attached the %s you requested.\n", usr.Name, file.Filename),
		Categories: []string{"export", "export-" + ctx.Param("dataset")},
	}
	if err = msg.Attach(file.Content, file.Filename, file.ContentType); err != nil {
		return errors.Wrap(err, "attaching export")
	}
	api.mailSvc.SendMessages(msg)

	return ctx.JSON(http.StatusAccepted, SuccessResponse{Success: "The export will arrive in your inbox shortly."})
}
