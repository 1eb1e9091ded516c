// Package appfs embeds the files the binaries need at runtime: SQL migrations, seed fixtures and assets.
package appfs

import "embed"

//go:embed migrations/*.sql seed/*.yaml assets/*
var FS embed.FS

const (
	MigrationsDir   = "migrations"
	SeedFile        = "seed/seed.yaml"
	CommonPasswords = "assets/common-passwords.txt.gz"
)
