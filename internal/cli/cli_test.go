package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/wisdom"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"joy", "relief"}, splitList(" joy, ,relief ,"))
	assert.Nil(t, splitList(""))
}

func TestEditList(t *testing.T) {
	list := []string{"Honesty", "Patience"}
	got := editList(list, []string{"Curiosity", "honesty", " "}, []string{"patience"})
	assert.Equal(t, []string{"Honesty", "Curiosity"}, got)
	assert.Equal(t, []string{"Honesty", "Patience"}, list, "input is not modified")
	assert.Empty(t, editList(nil, nil, nil))
}

func TestCharterDiff(t *testing.T) {
	before := model.Charter{Values: []string{"Honesty"}}
	after := cloneCharter(before)
	after.Values = append(after.Values, "Patience")

	diff, err := charterDiff(before, after)
	require.NoError(t, err)
	assert.Contains(t, diff, "--- charter.yaml")
	assert.Contains(t, diff, "+    - Patience")

	same, err := charterDiff(before, before)
	require.NoError(t, err)
	assert.Empty(t, same)
}

func TestCloneCharter(t *testing.T) {
	c := model.Charter{Values: []string{"a"}}
	cp := cloneCharter(c)
	cp.Values[0] = "b"
	assert.Equal(t, "a", c.Values[0])
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), d)

	today, err := parseDate("")
	require.NoError(t, err)
	assert.Equal(t, time.Now().UTC().Format(dateLayout), today.Format(dateLayout))

	_, err = parseDate("09/03/2024")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestInputKinds(t *testing.T) {
	assert.True(t, isURL("https://example.com/almanack"))
	assert.False(t, isURL("notes/http.md"))
	assert.True(t, isGlob("books/**/*.md"))
	assert.True(t, isGlob("talk-{1,2}.txt"))
	assert.False(t, isGlob("books/almanack.pdf"))
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	pr := newPrompter(strings.NewReader("Ada\n\nmaybe\nhigh\ny\n"), &out)

	assert.Equal(t, "Ada", pr.ask("Name", ""))
	assert.Equal(t, "mid", pr.ask("Stage", "mid"))
	assert.Equal(t, "high", pr.choose("Risk", []string{"low", "medium", "high"}, "medium"))
	assert.Contains(t, out.String(), "please choose one of")
	assert.True(t, pr.confirm("Dependents", false))

	// input exhausted
	assert.Equal(t, "medium", pr.choose("Risk", []string{"low", "medium", "high"}, "medium"))
	assert.True(t, pr.eof)
}

func TestInterviewProfile(t *testing.T) {
	in := "Ada\n42\nsenior\nsoftware\nengineer\nLondon\nlong\nlow\nn\nblunt\nLikes long walks.\n"
	p := model.NewProfile("")
	interviewProfile(newPrompter(strings.NewReader(in), &bytes.Buffer{}), &p)

	require.NoError(t, p.Validate())
	assert.Equal(t, "Ada", p.Name)
	require.NotNil(t, p.Background.Age)
	assert.Equal(t, 42, *p.Background.Age)
	assert.Equal(t, model.CareerSenior, p.Background.CareerStage)
	assert.Equal(t, model.HorizonLong, p.Constraints.TimeHorizon)
	assert.Equal(t, model.RiskLow, p.Constraints.RiskTolerance)
	require.NotNil(t, p.Constraints.HasDependents)
	assert.False(t, *p.Constraints.HasDependents)
	assert.Equal(t, model.ToneBlunt, p.Preferences.Tone)
	assert.Equal(t, "Likes long walks.", p.Bio)
}

func TestFormatProfile(t *testing.T) {
	age := 42
	p := model.NewProfile("Ada")
	p.Background.Age = &age
	p.Background.Industry = "software"

	out := formatProfile(&p)
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "software")
	assert.NotContains(t, out, "Occupation")
}

func TestRetrievalSource(t *testing.T) {
	log := zap.NewNop()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, wisdom.RecordsFile), []byte("{not json"), 0o644))
	_, openErr := wisdom.Open(dir, embedding.NewHashEmbedder(16))
	require.Error(t, openErr)

	ws, err := retrievalSource(log, nil, openErr)
	var corrupt *wisdom.CorruptStoreError
	assert.ErrorAs(t, err, &corrupt)
	assert.Nil(t, ws)

	ws, err = retrievalSource(log, nil, errors.New("permission denied"))
	assert.NoError(t, err)
	assert.Nil(t, ws, "an unavailable store leaves the source unset, not a typed nil")

	good, err := wisdom.Open(t.TempDir(), embedding.NewHashEmbedder(16))
	require.NoError(t, err)
	ws, err = retrievalSource(log, good, nil)
	assert.NoError(t, err)
	assert.Same(t, good, ws)
}
