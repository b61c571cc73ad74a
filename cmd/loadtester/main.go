// loadtester floods a running tracking server with synthetic events.
// Configure with TARGET_BASE, TOTAL_EVENTS, CONCURRENCY, PROGRESS_STEP.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const cookieName = "__ModuleSessionCookie"

// signingKey only has to parse, not verify; the server reads the claims
// without checking the signature.
const signingKey = "tracklix load testing key"

type eventTemplate struct {
	eventType     string
	eventName     string
	pageName      string
	componentName string
	pageURL       string
	pageTitle     string
	refer         string
}

var eventTemplates = []eventTemplate{
	{"View", "View_Demo_TestPage", "Demo_Page", "page", "https://app.local/demo", "Demo", "https://app.local/dashboard"},
	{"Click", "Click_Demo_ManualClickButton", "Demo_Page", "manual_button", "https://app.local/demo", "Demo", "https://app.local/dashboard"},
	{"Expose", "Expose_TestPage_ExposeTestCard", "Test_Page", "expose_test_card", "https://app.local/test", "Test", "https://app.local/demo"},
	{"Disappear", "Disappear_TestPage_DisappearTestCard", "Test_Page", "disappear_test_card", "https://app.local/test", "Test", "https://app.local/test"},
}

var (
	deviceTypes     = []string{"Web", "phone", "ipad"}
	browserVersions = []string{"Chrome", "safari", "Firefox", "Edge"}
	productions     = []string{"PT", "FD", "PY"}
)

// userSession is one pre-built visitor identity reused across the run so
// the server exercises its session-reuse path.
type userSession struct {
	companyID  uuid.UUID
	employeeID uuid.UUID
	sessionID  uuid.UUID
	cookie     string
}

type eventRequest struct {
	SessionID      uuid.UUID `json:"sessionId"`
	Production     string    `json:"production"`
	EventType      string    `json:"eventType"`
	EventName      string    `json:"eventName"`
	PageName       string    `json:"pageName"`
	ComponentName  string    `json:"componentName"`
	Timestamp      time.Time `json:"timestamp"`
	Refer          string    `json:"refer"`
	ExposeTime     int       `json:"exposeTime"`
	DeviceType     string    `json:"deviceType"`
	OsVersion      string    `json:"osVersion"`
	BrowserVersion string    `json:"browserVersion"`
	PageURL        string    `json:"pageUrl"`
	PageTitle      string    `json:"pageTitle"`
	Properties     string    `json:"properties"`
}

func main() {
	baseURL := envString("TARGET_BASE", "http://localhost:8080")
	total := envInt("TOTAL_EVENTS", 300000)
	concurrency := envInt("CONCURRENCY", 64)
	progress := envInt("PROGRESS_STEP", 1000)

	sessions := buildSessions(10, 100)
	client := &http.Client{Timeout: 10 * time.Second}

	log.Printf("loadtester: base=%s total=%d concurrency=%d", baseURL, total, concurrency)
	log.Printf("loadtester: pre-built sessions=%d", len(sessions))

	work := make(chan int, concurrency*4)
	var sent, failures atomic.Int64
	started := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if err := sendEvent(client, baseURL, sessions[i%len(sessions)], i); err != nil {
					failures.Add(1)
				}
				if n := sent.Add(1); progress > 0 && (n%int64(progress) == 0 || n == int64(total)) {
					fmt.Fprintf(os.Stderr, "\rprogress: %d/%d", n, total)
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	fmt.Fprintln(os.Stderr)

	elapsed := time.Since(started)
	log.Printf("loadtester: done in %.2fs | sent=%d | failures=%d | avg rps=%.1f",
		elapsed.Seconds(), total, failures.Load(), float64(total)/elapsed.Seconds())
}

func sendEvent(client *http.Client, baseURL string, us userSession, i int) error {
	tpl := eventTemplates[i%len(eventTemplates)]
	deviceType := deviceTypes[rand.Intn(len(deviceTypes))]

	exposeTime := 0
	if tpl.eventType == "View" || tpl.eventType == "Expose" {
		exposeTime = 500 + rand.Intn(4500)
	}
	properties, _ := json.Marshal(map[string]any{
		"variant":   pick("A", "B"),
		"flow":      tpl.pageName,
		"placement": tpl.componentName,
		"sequence":  i,
	})

	payload := eventRequest{
		SessionID:      us.sessionID,
		Production:     productions[i%len(productions)],
		EventType:      tpl.eventType,
		EventName:      tpl.eventName,
		PageName:       tpl.pageName,
		ComponentName:  tpl.componentName,
		Timestamp:      time.Now().UTC(),
		Refer:          tpl.refer,
		ExposeTime:     exposeTime,
		DeviceType:     deviceType,
		OsVersion:      pickOsVersion(deviceType),
		BrowserVersion: browserVersions[rand.Intn(len(browserVersions))],
		PageURL:        tpl.pageURL,
		PageTitle:      tpl.pageTitle,
		Properties:     string(properties),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/entities/%s/events", baseURL, us.sessionID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: cookieName, Value: us.cookie})

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// buildSessions creates companies with employees and one session each,
// minting the auth cookie up front so the hot path only sends requests.
func buildSessions(companies, employeesPerCompany int) []userSession {
	out := make([]userSession, 0, companies*employeesPerCompany)
	for c := 0; c < companies; c++ {
		companyID := uuid.New()
		for e := 0; e < employeesPerCompany; e++ {
			employeeID := uuid.New()
			out = append(out, userSession{
				companyID:  companyID,
				employeeID: employeeID,
				sessionID:  uuid.New(),
				cookie:     mintCookie(companyID, employeeID),
			})
		}
	}
	return out
}

func mintCookie(companyID, employeeID uuid.UUID) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"cid": companyID.String(),
		"eid": employeeID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		log.Fatalf("loadtester: mint cookie: %v", err)
	}
	return signed
}

func pickOsVersion(deviceType string) string {
	switch deviceType {
	case "ipad":
		return "iOs"
	case "phone":
		return pick("iOs", "Android")
	default:
		return "MacOs"
	}
}

func pick(a, b string) string {
	if rand.Intn(2) == 0 {
		return a
	}
	return b
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
