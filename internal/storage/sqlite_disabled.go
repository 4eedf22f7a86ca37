//go:build !sqlite
// +build !sqlite

package storage

import (
	"github.com/cockroachdb/errors"

	logx "chronod/pkg/logx"
)

func openSQLite(Config, logx.Logger) (Store, error) {
	return nil, errors.WithHint(
		errors.New("sqlite storage not built"),
		"build with -tags sqlite or use the file driver",
	)
}
