// Package owid catalogs the Our World in Data vaccination tables the
// pipeline mirrors into object storage.
package owid

const vaccinationsBase = "https://raw.githubusercontent.com/owid/covid-19-data/master/public/data/vaccinations/"

// Table is one upstream CSV file. Name doubles as the file's key segment in
// object storage.
type Table struct {
	Name string
	URL  string
}

// DailyTables returns the vaccination tables mirrored on every run.
func DailyTables() []Table {
	return []Table{
		{Name: "countries", URL: vaccinationsBase + "vaccinations.csv"},
		{Name: "age_group", URL: vaccinationsBase + "vaccinations-by-age-group.csv"},
		{Name: "manufacturers", URL: vaccinationsBase + "vaccinations-by-manufacturer.csv"},
		{Name: "us_states", URL: vaccinationsBase + "us_state_vaccinations.csv"},
	}
}

// WeeklyTables returns the slower-moving tables mirrored once a week.
func WeeklyTables() []Table {
	return []Table{
		{Name: "locations", URL: vaccinationsBase + "locations.csv"},
	}
}
