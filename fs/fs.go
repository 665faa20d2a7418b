package appfs

import "embed"

// FS holds the SQL migrations & the email templates.
//
//go:embed migrations/*.sql templates/email/*
var FS embed.FS
