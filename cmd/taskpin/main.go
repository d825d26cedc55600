package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
)

var (
	app     = kingpin.New("taskpin", "Command line client for the taskpin marketplace API")
	server  = app.Flag("server", "API server base URL").Default("http://localhost:3200").Envar("TASKPIN_SERVER").String()
	apiKey  = app.Flag("api-key", "API key").Envar("TASKPIN_API_KEY").String()
	userID  = app.Flag("user", "Acting user ID").Envar("TASKPIN_USER_ID").String()
	role    = app.Flag("role", "Acting user role (requester, worker, admin)").Default("requester").Envar("TASKPIN_USER_ROLE").String()
	timeout = app.Flag("timeout", "Request timeout").Default("10s").Duration()

	listCmd       = app.Command("list", "List your tasks")
	availableCmd  = app.Command("available", "List open tasks ranked for you (worker role)")
	availableLat  = availableCmd.Flag("lat", "Your latitude").Float64()
	availableLng  = availableCmd.Flag("lng", "Your longitude").Float64()
	availableSkls = availableCmd.Flag("skills", "Comma separated skills").String()

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	cancelCmd = app.Command("cancel", "Cancel a task")
	cancelID  = cancelCmd.Arg("id", "Task ID").Required().String()

	payCmd = app.Command("payment", "Payment commands")

	payStatusCmd = payCmd.Command("status", "Show payment status for a task")
	payStatusID  = payStatusCmd.Arg("id", "Task ID").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &apiClient{
		base:   strings.TrimRight(*server, "/"),
		apiKey: *apiKey,
		userID: *userID,
		role:   *role,
		http:   &http.Client{Timeout: *timeout},
	}

	var err error
	switch command {
	case listCmd.FullCommand():
		err = handleList(c)
	case availableCmd.FullCommand():
		err = handleAvailable(c)
	case showCmd.FullCommand():
		err = handleShow(c, *showID)
	case cancelCmd.FullCommand():
		err = handleCancel(c, *cancelID)
	case payStatusCmd.FullCommand():
		err = handlePaymentStatus(c, *payStatusID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type apiClient struct {
	base   string
	apiKey string
	userID string
	role   string
	http   *http.Client
}

func (c *apiClient) do(method, path string, query url.Values, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-User-Id", c.userID)
	req.Header.Set("X-User-Role", c.role)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

type taskView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	PriceCents  int64      `json:"price_cents"`
	TotalCents  int64      `json:"total_cents"`
	WorkerID    string     `json:"worker_id"`
	PaidAt      *time.Time `json:"paid_at"`
	DistanceKm  float64    `json:"distance_km"`
	Score       float64    `json:"score"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Address     string     `json:"address"`
}

func handleList(c *apiClient) error {
	var tasks []taskView
	if err := c.do(http.MethodGet, "/api/tasks/mine", nil, &tasks); err != nil {
		return err
	}
	printTaskTable(tasks, false)
	return nil
}

func handleAvailable(c *apiClient) error {
	q := url.Values{}
	if *availableLat != 0 || *availableLng != 0 {
		q.Set("lat", strconv.FormatFloat(*availableLat, 'f', -1, 64))
		q.Set("lng", strconv.FormatFloat(*availableLng, 'f', -1, 64))
	}
	if *availableSkls != "" {
		q.Set("skills", *availableSkls)
	}
	var tasks []taskView
	if err := c.do(http.MethodGet, "/api/tasks/available", q, &tasks); err != nil {
		return err
	}
	printTaskTable(tasks, true)
	return nil
}

func handleShow(c *apiClient, id string) error {
	var t taskView
	if err := c.do(http.MethodGet, "/api/tasks/"+id, nil, &t); err != nil {
		return err
	}
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", bold(t.Title), statusColor(t.Status)(t.Status))
	fmt.Printf("  id:       %s\n", t.ID)
	if t.Category != "" {
		fmt.Printf("  category: %s\n", t.Category)
	}
	if t.Address != "" {
		fmt.Printf("  address:  %s\n", t.Address)
	}
	fmt.Printf("  price:    %s\n", cents(t.PriceCents))
	if t.TotalCents > 0 {
		fmt.Printf("  total:    %s\n", cents(t.TotalCents))
	}
	if t.WorkerID != "" {
		fmt.Printf("  worker:   %s\n", t.WorkerID)
	}
	if t.PaidAt != nil {
		fmt.Printf("  paid at:  %s\n", t.PaidAt.Format(time.RFC3339))
	}
	if t.Description != "" {
		fmt.Printf("\n%s\n", t.Description)
	}
	return nil
}

func handleCancel(c *apiClient, id string) error {
	var t taskView
	if err := c.do(http.MethodPost, "/api/tasks/"+id+"/cancel", nil, &t); err != nil {
		return err
	}
	fmt.Printf("Cancelled %s\n", t.ID)
	return nil
}

func handlePaymentStatus(c *apiClient, id string) error {
	var st struct {
		Paid              bool       `json:"paid"`
		PaidAt            *time.Time `json:"paid_at"`
		PaymentIntentID   string     `json:"payment_intent_id"`
		TransactionStatus string     `json:"transaction_status"`
	}
	if err := c.do(http.MethodGet, "/api/payments/tasks/"+id+"/status", nil, &st); err != nil {
		return err
	}
	if st.Paid {
		color.Green("paid")
		if st.PaidAt != nil {
			fmt.Printf("  paid at: %s\n", st.PaidAt.Format(time.RFC3339))
		}
	} else {
		color.Yellow("unpaid")
	}
	if st.PaymentIntentID != "" {
		fmt.Printf("  intent:  %s\n", st.PaymentIntentID)
	}
	if st.TransactionStatus != "" {
		fmt.Printf("  ledger:  %s\n", st.TransactionStatus)
	}
	return nil
}

func printTaskTable(tasks []taskView, ranked bool) {
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return
	}
	for _, t := range tasks {
		line := fmt.Sprintf("%-26s  %-12s  %8s  %s", t.ID, statusColor(t.Status)(t.Status), cents(t.PriceCents), t.Title)
		if ranked {
			line += fmt.Sprintf("  (%.1f km, score %.1f)", t.DistanceKm, t.Score)
		}
		fmt.Println(line)
	}
}

func statusColor(status string) func(a ...interface{}) string {
	switch status {
	case "requested":
		return color.New(color.FgCyan).SprintFunc()
	case "assigned", "in_progress":
		return color.New(color.FgYellow).SprintFunc()
	case "completed":
		return color.New(color.FgGreen).SprintFunc()
	case "cancelled":
		return color.New(color.FgRed).SprintFunc()
	default:
		return fmt.Sprint
	}
}

func cents(v int64) string {
	return fmt.Sprintf("$%d.%02d", v/100, v%100)
}
