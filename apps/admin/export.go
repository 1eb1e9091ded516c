package main

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-console/core/access"
)

// the CLI exports on behalf of the platform itself.
var systemPrincipal = access.Principal{ID: "SYSTEM", Name: "System", Role: access.RoleSuperAdmin}

func (cli *commandLine) export(dataset, format, output string) error {
	ds, err := cli.sources.Dataset(context.Background(), systemPrincipal, dataset)
	if err != nil {
		return err
	}
	buf, err := ds.Render(format)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = io.Copy(cli.out, buf)
		return err
	}
	if err = os.WriteFile(output, buf.Bytes(), 0644); err != nil {
		return errors.Wrap(err, "writing export")
	}
	logger.Printf("exported %d %s to %s\n", len(ds.Rows), dataset, output)
	return nil
}
