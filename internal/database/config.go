package database

import "time"

type Config struct {
	FileName string        `envconfig:"SOD_DB_FILE" default:"sod.db"`
	Timeout  time.Duration `envconfig:"SOD_DB_OPEN_TIMEOUT" default:"1s"`
}
