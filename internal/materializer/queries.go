package materializer

import (
	"fmt"
	"strings"
)

const (
	GamesTable    = "team_games"
	AveragesTable = "team_points_avg"
)

// BuildCreateGames declares the external table over the exported game logs.
func BuildCreateGames(db, location string) string {
	if !strings.HasSuffix(location, "/") {
		location += "/"
	}
	return fmt.Sprintf(`
CREATE EXTERNAL TABLE IF NOT EXISTS %s.%s (
  game_id    string,
  game_date  string,
  matchup    string,
  wl         string,
  pts        bigint
)
PARTITIONED BY (season string, team_id string)
STORED AS PARQUET
LOCATION '%s'
`, db, GamesTable, location)
}

// BuildRepair loads partitions written since the last run.
func BuildRepair(db string) string {
	return fmt.Sprintf(`MSCK REPAIR TABLE %s.%s`, db, GamesTable)
}

// BuildDropAverages returns a DROP TABLE IF EXISTS for the averages table.
func BuildDropAverages(db string) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s.%s`, db, AveragesTable)
}

// BuildCTASAverages materializes each team's mean points over its last n
// games of season. Season is injected literally.
func BuildCTASAverages(db, season string, n int) string {
	return fmt.Sprintf(`
CREATE TABLE %s.%s
WITH (
  format = 'PARQUET'
) AS
WITH ranked AS (
  SELECT
    team_id,
    season,
    pts,
    ROW_NUMBER() OVER (
      PARTITION BY team_id
      ORDER BY date_parse(
        CONCAT(SUBSTR(game_date, 1, 1), LOWER(SUBSTR(game_date, 2))),
        '%%b %%d, %%Y'
      ) DESC
    ) AS rn
  FROM %s.%s
  WHERE season = '%s' AND pts IS NOT NULL
)
SELECT
  team_id,
  season,
  COUNT(*)                           AS games,
  ROUND(AVG(CAST(pts AS DOUBLE)), 2) AS avg_pts
FROM ranked
WHERE rn <= %d
GROUP BY team_id, season
`, db, AveragesTable, db, GamesTable, sqlQuote(season), n)
}

func BuildCountAverages(db string) string {
	return fmt.Sprintf(`SELECT COUNT(*) AS teams FROM %s.%s`, db, AveragesTable)
}

func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
