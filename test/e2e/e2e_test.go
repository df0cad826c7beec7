//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/grahaedukasi/graha-cbt/internal/model"
	ws "github.com/grahaedukasi/graha-cbt/internal/websocket"
)

const defaultBaseURL = "http://localhost:8080"

var (
	baseURL    string
	adminEmail string
	adminPass  string
	adminToken string
)

func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	adminEmail = os.Getenv("ADMIN_EMAIL")
	adminPass = os.Getenv("E2E_ADMIN_PASSWORD")
	if adminEmail == "" || adminPass == "" {
		fmt.Println("ADMIN_EMAIL and E2E_ADMIN_PASSWORD are required")
		os.Exit(1)
	}

	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func request(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode: %v", method, path, err)
	}
	if env.Error != nil {
		t.Logf("%s %s -> %d %s: %s", method, path, resp.StatusCode, env.Error.Code, env.Error.Message)
	} else if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestAdminLogin(t *testing.T) {
	var res struct {
		Token string `json:"token"`
	}
	if code := request(t, http.MethodPost, "/api/v1/auth/admin/login", "", model.AdminLoginRequest{
		Email: adminEmail, Password: adminPass,
	}, &res); code != http.StatusOK {
		t.Fatalf("admin login = %d", code)
	}
	adminToken = res.Token
}

func TestExamOverWebSocket(t *testing.T) {
	if adminToken == "" {
		t.Skip("admin login failed")
	}

	subject := fmt.Sprintf("E2E-%d", time.Now().Unix())
	now := time.Now().UTC()

	if code := request(t, http.MethodPut, "/api/v1/admin/exam-config", adminToken, model.UpdateExamConfigRequest{
		Title:           "E2E Try Out",
		DurationMinutes: 10,
		SubjectSchedules: []model.SubjectScheduleRequest{
			{Subject: subject, ScheduledStart: now.Add(-time.Minute), ScheduledEnd: now.Add(time.Hour)},
		},
	}, nil); code != http.StatusOK {
		t.Fatalf("save config = %d", code)
	}

	var q struct {
		Question model.Question `json:"question"`
	}
	if code := request(t, http.MethodPost, "/api/v1/admin/questions", adminToken, model.QuestionRequest{
		Text:    "Urutkan bilangan dari terkecil",
		Subject: subject,
		Type:    model.QuestionTypeOrdering,
		Points:  5,
		OrderItems: []string{
			"1", "2", "3",
		},
	}, &q); code != http.StatusCreated {
		t.Fatalf("create question = %d", code)
	}
	t.Cleanup(func() {
		request(t, http.MethodDelete, "/api/v1/admin/questions/"+q.Question.ID, adminToken, nil, nil)
	})

	var st struct {
		Student model.Student `json:"student"`
	}
	if code := request(t, http.MethodPost, "/api/v1/admin/students", adminToken, model.CreateStudentRequest{
		Name: "E2E Student", ClassName: "6A",
	}, &st); code != http.StatusCreated {
		t.Fatalf("create student = %d", code)
	}
	t.Cleanup(func() {
		request(t, http.MethodDelete, "/api/v1/admin/students/"+st.Student.ID, adminToken, nil, nil)
	})

	var login struct {
		Token string `json:"token"`
	}
	if code := request(t, http.MethodPost, "/api/v1/auth/student/login", "", model.StudentLoginRequest{
		Code: st.Student.Code,
	}, &login); code != http.StatusOK {
		t.Fatalf("student login = %d", code)
	}

	if code := request(t, http.MethodPost, "/api/v1/student/exam/start", login.Token, nil, nil); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}

	wsURL, _ := url.Parse(baseURL)
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = "/ws/v1/student/exam/stream"
	wsURL.RawQuery = url.Values{"token": {login.Token}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	expect := func(want ws.Event) ws.Response {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var res ws.Response
		if err := conn.ReadJSON(&res); err != nil {
			t.Fatalf("read %s: %v", want, err)
		}
		if res.Event != want {
			t.Fatalf("event = %s (%s %s), want %s", res.Event, res.Code, res.Message, want)
		}
		return res
	}
	send := func(req ws.Request) {
		t.Helper()
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("write %s: %v", req.Action, err)
		}
	}

	expect(ws.EventState)

	send(ws.Request{Action: ws.ActionPing})
	expect(ws.EventPong)

	send(ws.Request{Action: ws.ActionAnswer, Answer: &model.AnswerRequest{
		QuestionID:    q.Question.ID,
		OrderSequence: []int{0, 1, 2},
	}})
	expect(ws.EventState)

	send(ws.Request{Action: ws.ActionFinish})
	expect(ws.EventConfirm)

	send(ws.Request{Action: ws.ActionConfirmFinish})
	res := expect(ws.EventFinished)

	raw, _ := json.Marshal(res.Data)
	var done model.Student
	if err := json.Unmarshal(raw, &done); err != nil {
		t.Fatalf("decode finished: %v", err)
	}
	if done.Status != model.StudentStatusCompleted || done.Score != 5 {
		t.Fatalf("finished = %+v", done)
	}
}
