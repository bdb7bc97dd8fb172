package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"atomkit/internal/config"
	"atomkit/internal/orm"
	"atomkit/lib/configutil"
)

const stateDir = "dev/.state"

type geoState struct {
	GeoDB string `json:"geo_db"`
}

func createConfig(geoDB string) error {
	path := filepath.Join(stateDir, "config.json5")
	_, err := os.Stat(path)
	if err == nil {
		slog.Info("config already created", "path", path)
		return nil
	}

	cfg := config.New()
	cfg.Dirs.Root = stateDir
	cfg.DB = orm.Config{File: "<dev_state>/atom.db"}
	cfg.GeoDB = geoDB
	slog.Info("creating config", "path", path)
	return config.Save(cfg, path)
}

func createDb() error {
	db, err := orm.Config{File: "<dev_state>/atom.db"}.Open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Raw().Ping()
}

func create(recreate bool, geoDB string) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll(stateDir)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(stateDir, 0777)
	if err != nil {
		return err
	}

	err = createConfig(geoDB)
	if err != nil {
		return err
	}
	err = createDb()
	if err != nil {
		return err
	}
	if geoDB != "" {
		err = configutil.WriteConfig(filepath.Join(stateDir, "geo", "config.json5"), geoState{GeoDB: geoDB})
		if err != nil {
			return err
		}
	}

	slog.Info("tests that talk to live services read their config from dev/.state/..., run `go test -v` and look at the skipped tests to see which files they expect.")
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	geoDB := flag.String("geo-db", "", "a GeoLite2-City database enabling the geo lookup tests")
	flag.Parse()

	err := create(*recreate, *geoDB)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
