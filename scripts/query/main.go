package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// --- API Query Struct ---
type AlertQueryRequest struct {
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	MinLevel string `json:"min_level,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// --- Main Function ---
func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'api' to query via HTTP API, 'direct' to query ClickHouse directly.")
	minLevel := flag.String("level", "", "Alert level: at-or-above via the API, exact match in direct mode (optional).")
	rule := flag.String("rule", "", "Only alerts where this rule fired, e.g. syn_flood (optional).")
	since := flag.String("since", "1h", "How far back to look, as a duration.")
	limit := flag.Int("limit", 20, "Maximum number of alerts to return.")

	flag.Parse()

	dur, err := time.ParseDuration(*since)
	if err != nil {
		log.Fatalf("Invalid -since duration: %v", err)
	}
	from := time.Now().UTC().Add(-dur)

	log.Printf("Running in '%s' mode.", *mode)

	switch *mode {
	case "api":
		queryViaAPI(from, *minLevel, *rule, *limit)
	case "direct":
		directQueryClickHouse(from, *minLevel, *rule, *limit)
	default:
		log.Fatalf("Invalid mode: %s. Use 'api' or 'direct'.", *mode)
	}
}

// --- API Query Logic ---
func queryViaAPI(from time.Time, minLevel, rule string, limit int) {
	apiURL := "http://localhost:8080/api/v1/alerts/query"

	reqBody := AlertQueryRequest{
		From:     from.Format(time.RFC3339),
		MinLevel: minLevel,
		Rule:     rule,
		Limit:    limit,
	}

	jsonReqBody, err := json.Marshal(reqBody)
	if err != nil {
		log.Fatalf("Error marshalling request body: %v", err)
	}

	log.Printf("Sending request to %s with body:\n%s\n", apiURL, string(jsonReqBody))

	resp, err := http.Post(apiURL, "application/json", bytes.NewBuffer(jsonReqBody))
	if err != nil {
		log.Fatalf("Error sending request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("API returned non-200 status code: %d\nResponse: %s", resp.StatusCode, string(respBody))
	}

	var prettyJSON bytes.Buffer
	err = json.Indent(&prettyJSON, respBody, "", "  ")
	if err != nil {
		log.Printf("Could not prettify JSON, printing raw response:")
		fmt.Println(string(respBody))
		return
	}

	log.Println("---")
	fmt.Println(prettyJSON.String())
}

// --- Direct ClickHouse Query Logic ---
func directQueryClickHouse(from time.Time, minLevel, rule string, limit int) {
	connOpts := clickhouse.Options{
		Addr: []string{"localhost:9000"},
		Auth: clickhouse.Auth{
			Database: "floodsentry",
			Username: "default",
			Password: "",
		},
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			Timestamp,
			Level,
			Reason,
			PPS,
			AttackPPS,
			AttackSources
		FROM fs_alerts
	`)

	var whereClauses []string
	args := []interface{}{}

	whereClauses = append(whereClauses, "Timestamp >= ?")
	args = append(args, from)

	if minLevel != "" {
		whereClauses = append(whereClauses, "Level = ?")
		args = append(args, strings.ToUpper(minLevel))
	}

	if rule != "" {
		whereClauses = append(whereClauses, "has(Rules, ?)")
		args = append(args, rule)
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	queryBuilder.WriteString(" ORDER BY Timestamp DESC LIMIT ?")
	args = append(args, limit)

	conn, err := clickhouse.Open(&connOpts)
	if err != nil {
		log.Fatalf("Error connecting to ClickHouse: %v", err)
	}
	defer conn.Close()

	log.Println("Successfully connected to ClickHouse.")

	rows, err := conn.Query(context.Background(), queryBuilder.String(), args...)
	if err != nil {
		log.Fatalf("Error executing query: %v", err)
	}
	defer rows.Close()

	log.Println("--- Alert Query Results (Direct) ---")

	var foundResult bool
	for rows.Next() {
		foundResult = true
		var (
			timestamp     time.Time
			level         string
			reason        string
			pps           float64
			attackPPS     float64
			attackSources float64
		)

		if err := rows.Scan(&timestamp, &level, &reason, &pps, &attackPPS, &attackSources); err != nil {
			log.Printf("Error scanning row: %v", err)
			continue
		}

		fmt.Printf("[%s] %s\n", timestamp.Format(time.RFC3339), level)
		fmt.Printf("  Reason: %s\n", reason)
		fmt.Printf("  PPS: %.0f (attack %.0f from ~%.0f sources)\n", pps, attackPPS, attackSources)
		fmt.Println("---------------------")
	}

	if !foundResult {
		log.Println("No data found for the specified criteria.")
	}

	if err := rows.Err(); err != nil {
		log.Printf("An error occurred during row iteration: %v", err)
	}
}
