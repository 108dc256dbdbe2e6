package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	openai "aegis-intel/internal/infra/openai"
)

type fakeChat struct {
	reply string
	err   error
	calls int
	last  openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{
		Message:      openai.ChatMessage{Role: "assistant", Content: f.reply},
		FinishReason: "stop",
	}}}, nil
}

func batch(n int) []domain.RawItem {
	items := make([]domain.RawItem, n)
	for i := range items {
		items[i] = domain.RawItem{Title: "title " + string(rune('A'+i)), URL: "https://x/" + string(rune('a'+i))}
	}
	return items
}

func TestClassifyEmptyInputSkipsCall(t *testing.T) {
	chat := &fakeChat{}
	anns, err := NewLLM(chat, "m", time.Second, zerolog.Nop()).Classify(context.Background(), nil)
	if err != nil || len(anns) != 0 {
		t.Fatalf("ожидали пустой результат без ошибки")
	}
	if chat.calls != 0 {
		t.Fatalf("модель не должна вызываться для пустой пачки")
	}
}

func TestClassifyParsesFencedReply(t *testing.T) {
	chat := &fakeChat{reply: "```json\n[{\"id\":2,\"threat\":9,\"lat\":50.4,\"lon\":30.5,\"loc\":\"Ukraine\",\"sum\":\"Strike\"},{\"id\":0,\"threat\":3,\"loc\":\"Sudan\",\"sum\":\"Clashes\"}]\n```"}
	anns, err := NewLLM(chat, "gemini-1.5-flash", time.Second, zerolog.Nop()).Classify(context.Background(), batch(3))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(anns) != 2 {
		t.Fatalf("ожидали 2 аннотации, получили %d", len(anns))
	}
	if anns[0].Index != 2 || anns[0].Threat != 9 || anns[0].Lat == nil || *anns[0].Lat != 50.4 {
		t.Fatalf("неожиданная аннотация %+v", anns[0])
	}
	if anns[1].Index != 0 || anns[1].Lat != nil || anns[1].Lon != nil {
		t.Fatalf("координаты должны отсутствовать: %+v", anns[1])
	}
	if chat.last.Model != "gemini-1.5-flash" {
		t.Fatalf("модель не передана")
	}
	if !strings.Contains(chat.last.Messages[1].Content, `"id":1`) {
		t.Fatalf("в запросе нет идентификаторов: %s", chat.last.Messages[1].Content)
	}
}

func TestParseRejectsOutOfRangeIndex(t *testing.T) {
	_, err := Parse(`[{"id":0,"threat":5},{"id":7,"threat":9}]`, 3)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("ожидали ErrIndexOutOfRange, получили %v", err)
	}
	if _, err := Parse(`[{"id":-1,"threat":5}]`, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("отрицательный индекс тоже вне диапазона: %v", err)
	}
}

func TestParseKeepsFirstDuplicate(t *testing.T) {
	anns, err := Parse(`[{"id":1,"threat":4,"loc":"first"},{"id":1,"threat":9,"loc":"second"}]`, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(anns) != 1 || anns[0].Loc != "first" {
		t.Fatalf("ожидали первую аннотацию, получили %+v", anns)
	}
}

func TestParseAcceptsWrappedList(t *testing.T) {
	anns, err := Parse(`{"results":[{"id":"1","threat":"6.6","lat":null}]}`, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(anns) != 1 || anns[0].Index != 1 || anns[0].Threat != 7 || anns[0].Lat != nil {
		t.Fatalf("неожиданный результат %+v", anns)
	}
}

func TestParseClampsExtremeThreat(t *testing.T) {
	anns, err := Parse(`[{"id":0,"threat":1e20},{"id":1,"threat":-1e20},{"id":2,"threat":10.4}]`, 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := []int{domain.MaxThreat, domain.MinThreat, domain.MaxThreat}
	for i, w := range want {
		if anns[i].Threat != w {
			t.Fatalf("элемент %d: ожидали угрозу %d, получили %d", i, w, anns[i].Threat)
		}
	}
}

func TestParseDropsIrrelevant(t *testing.T) {
	anns, err := Parse(`[{"id":0,"relevant":false,"threat":2},{"id":1,"relevant":true,"threat":8}]`, 2)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(anns) != 1 || anns[0].Index != 1 {
		t.Fatalf("ожидали только релевантную статью, получили %+v", anns)
	}
}

func TestParseFailures(t *testing.T) {
	cases := map[string]string{
		"пусто":             "   ",
		"не json":           "Sorry, I cannot help with that.",
		"не массив":         `{"a":[1],"b":[2]}`,
		"элемент не объект": `[1,2,3]`,
		"нет id":            `[{"threat":5}]`,
		"дробный id":        `[{"id":1.5}]`,
		"битый json":        `[{"id":1,`,
	}
	for name, reply := range cases {
		if _, err := Parse(reply, 3); err == nil {
			t.Fatalf("%s: ожидали ошибку", name)
		}
	}
}

func TestClassifyPropagatesClientError(t *testing.T) {
	chat := &fakeChat{err: errors.New("quota")}
	if _, err := NewLLM(chat, "m", time.Second, zerolog.Nop()).Classify(context.Background(), batch(1)); err == nil {
		t.Fatal("ожидали ошибку клиента")
	}
}
