package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for the configuration parameters.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "CineSense")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/cinesense.log")
	viper.SetDefault("main.log.level", "info")

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "cinesense.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "cinesense")
	viper.SetDefault("output.mysql.password", "cinesense")
	viper.SetDefault("output.mysql.database", "cinesense")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.postgres.enabled", false)
	viper.SetDefault("output.postgres.username", "postgres")
	viper.SetDefault("output.postgres.password", "postgres")
	viper.SetDefault("output.postgres.database", "cinesense")
	viper.SetDefault("output.postgres.host", "localhost")
	viper.SetDefault("output.postgres.port", "5432")
	viper.SetDefault("output.postgres.sslmode", "disable")

	viper.SetDefault("scraper.baseurl", "https://www.imdb.com")
	viper.SetDefault("scraper.useragent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.51 Safari/537.36")
	viper.SetDefault("scraper.timeout", 30*time.Second)

	viper.SetDefault("classifier.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("classifier.model", "gpt-4o-mini")
	viper.SetDefault("classifier.apikey", "")
	viper.SetDefault("classifier.timeout", 60*time.Second)
	viper.SetDefault("classifier.timebudget", 30*time.Minute)

	viper.SetDefault("pipeline.workers", 4)
	viper.SetDefault("pipeline.staleness", 24*time.Hour)
	viper.SetDefault("pipeline.leasettl", 45*time.Minute)
	viper.SetDefault("pipeline.scaninterval", time.Hour)

	viper.SetDefault("backup.enabled", false)
	viper.SetDefault("backup.snapshotdir", "data/backups")
	viper.SetDefault("backup.keepcount", 3)
	viper.SetDefault("backup.targets", []map[string]any{})
}
