package db

import "io/fs"

func migrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		// The embed pattern guarantees the directory exists.
		panic(err)
	}
	return sub
}
