// Command genmock writes a deterministic synthetic raw extraction CSV for
// demos and manual testing of the consolidation pipeline. The same seed
// always produces the same file.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/disponibilidad_2810_0411.csv -stations 60 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/station-availability-etl/internal/domain"
)

// profile shapes the availability of every variable of a station.
type profile int

const (
	healthy profile = iota
	degraded
	silent
	hiddenSensor
	misconfigured
)

var profileNames = [...]string{"healthy", "degraded", "silent", "hidden-sensor", "misconfigured"}

// sensorDef is one instrument and the variables it reports.
type sensorDef struct {
	name      string
	frequency string
	variables []string
}

var sensors = []sensorDef{
	{name: "TH", frequency: "horario", variables: []string{"TEMP", "HUM_REL"}},
	{name: "PP", frequency: "horario", variables: []string{"PRECIP"}},
	{name: "VV", frequency: "minuto", variables: []string{"VEL_VIENTO", "DIR_VIENTO"}},
	{name: "PS", frequency: "diario", variables: []string{"PRES_ATM"}},
	{name: "OP", frequency: "horario", variables: []string{"N_BATERIA", "N_TEMP_INT_TRANS"}},
}

var header = []string{"DZ", "Estacion", "Sensor", "Variable", "Frecuencia", "Datos_flag_C", "Datos_flag_M", "Datos_esperados"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the raw CSV fixture")
	stations := flag.Int("stations", 40, "number of stations to generate")
	zones := flag.Int("zones", 6, "number of zones")
	seed := flag.Uint64("seed", 1, "random seed")
	days := flag.Int("period-days", domain.DefaultPeriodDays, "days in the reporting period")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *stations <= 0 || *zones <= 0 || *days <= 0 {
		return fmt.Errorf("-stations, -zones and -period-days must be positive")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	rows := [][]string{header}
	counts := make(map[profile]int)

	for i := range *stations {
		zone := strconv.Itoa(i%*zones + 1)
		station := fmt.Sprintf("EST%03d", i+1)
		p := pickProfile(rng)
		counts[p]++
		rows = append(rows, stationRows(rng, zone, station, p, *days)...)
	}

	if err := writeCSV(*out, rows); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d rows for %d stations: %s", len(rows)-1, *stations, *out)
	for p, name := range profileNames {
		log.Printf("  %-14s %d", name, counts[profile(p)])
	}
	return nil
}

// pickProfile draws a station profile. Most of the network is healthy.
func pickProfile(rng *rand.Rand) profile {
	switch n := rng.IntN(100); {
	case n < 60:
		return healthy
	case n < 75:
		return degraded
	case n < 83:
		return silent
	case n < 93:
		return hiddenSensor
	default:
		return misconfigured
	}
}

func stationRows(rng *rand.Rand, zone, station string, p profile, days int) [][]string {
	// The hidden problem and the excess land on one sensor only.
	target := rng.IntN(len(sensors) - 1)

	var rows [][]string
	for si, s := range sensors {
		expected := domain.ExpectedCount(s.frequency, days)
		for _, v := range s.variables {
			ratio := ratioFor(rng, p, si == target)
			correct := int(float64(expected) * ratio)
			flagged := 0
			if correct > 0 && rng.IntN(4) == 0 {
				flagged = rng.IntN(correct/20 + 1)
				correct -= flagged
			}
			rows = append(rows, []string{
				zone, station, s.name, v, s.frequency,
				strconv.Itoa(correct), strconv.Itoa(flagged), strconv.Itoa(expected),
			})
		}
	}
	return rows
}

// ratioFor returns the fraction of expected samples a variable delivers.
func ratioFor(rng *rand.Rand, p profile, target bool) float64 {
	switch p {
	case degraded:
		return 0.35 + rng.Float64()*0.4
	case silent:
		return 0
	case hiddenSensor:
		if target {
			return rng.Float64() * 0.2
		}
	case misconfigured:
		if target {
			return 1.1 + rng.Float64()*0.4
		}
	}
	return 0.9 + rng.Float64()*0.1
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	return f.Close()
}
