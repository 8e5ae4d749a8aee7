package resume

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const baseYAML = `
basics:
  name: Ada Lovelace
  headline: Backend Engineer
  email: ada@example.com
  phone: "+49 30 1234567"
  location: Berlin
summary: Engineer with a decade of distributed-systems work.
skills:
  - category: Languages
    items: [Go, Python]
experience:
  - company: Analytical Engines GmbH
    role: Staff Engineer
    start: "2019"
    end: Present
    highlights:
      - Led the migration to event-driven ingestion.
      - Cut p99 latency by 40%.
  - company: Difference Ltd
    role: Engineer
    start: "2015"
    end: "2019"
    highlights:
      - Built the billing pipeline.
education:
  - school: University of London
    degree: BSc Mathematics
    year: "2014"
`

// echoTailorer returns the base document unchanged; failTailorer errors.
type echoTailorer struct{}

func (echoTailorer) TailorResume(_ context.Context, baseYAML, _, _ string) (string, error) {
	return baseYAML, nil
}

type failTailorer struct{}

func (failTailorer) TailorResume(context.Context, string, string, string) (string, error) {
	return "", errors.New("model overloaded")
}

// truncatingTailorer drops everything but the first experience entry.
type truncatingTailorer struct{}

func (truncatingTailorer) TailorResume(_ context.Context, baseYAML, _, _ string) (string, error) {
	doc, err := Parse([]byte(baseYAML))
	if err != nil {
		return "", err
	}
	doc.Experience = doc.Experience[:1]
	doc.Education = nil
	out, err := doc.Marshal()
	return string(out), err
}

// stubRenderer writes a placeholder instead of driving Chrome.
type stubRenderer struct{}

func (stubRenderer) RenderPDF(_ context.Context, _ *Document, outPath string) error {
	return os.WriteFile(outPath, []byte("%PDF-1.4 stub"), 0o644)
}

func testPipeline(t *testing.T, tailorer Tailorer) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	require.NoError(t, os.WriteFile(basePath, []byte(baseYAML), 0o644))

	cfg := config.ResumeConfig{
		BaseConfigPath: basePath,
		OutputDir:      filepath.Join(dir, "out"),
		KeepRecent:     2,
	}
	return NewPipeline(cfg, tailorer, stubRenderer{}, zap.NewNop()), cfg.OutputDir
}

func testResumeJob() *schemas.Job {
	return &schemas.Job{ID: "1", Title: "Go Engineer", Company: "Acme GmbH"}
}

func TestPipelineProducesArtifactTriple(t *testing.T) {
	p, outDir := testPipeline(t, echoTailorer{})

	pending := p.Start(context.Background(), testResumeJob(), "We need Go and distributed systems.")
	artifact := pending.AwaitOrNull(context.Background(), 10*time.Second)

	require.NotNil(t, artifact)
	assert.FileExists(t, artifact.YAMLPath)
	assert.FileExists(t, artifact.PDFPath)
	assert.FileExists(t, artifact.ScoresPath)
	assert.Contains(t, filepath.Base(artifact.PDFPath), "acme_gmbh_go_engineer_")
	assert.Equal(t, outDir, filepath.Dir(artifact.PDFPath))
}

func TestPipelineFailureJoinsAsNil(t *testing.T) {
	p, _ := testPipeline(t, failTailorer{})

	pending := p.Start(context.Background(), testResumeJob(), "description")
	artifact := pending.AwaitOrNull(context.Background(), 10*time.Second)

	assert.Nil(t, artifact)
	// A second join observes the same outcome.
	assert.Nil(t, pending.AwaitOrNull(context.Background(), time.Second))
}

func TestPipelineRejectsTruncatedOutput(t *testing.T) {
	p, outDir := testPipeline(t, truncatingTailorer{})

	pending := p.Start(context.Background(), testResumeJob(), "description")
	artifact := pending.AwaitOrNull(context.Background(), 10*time.Second)

	assert.Nil(t, artifact, "a gutted resume must never become an artifact")
	entries, err := os.ReadDir(outDir)
	if err == nil {
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".pdf", "no pdf may be rendered from truncated output")
		}
	}
}

func TestPipelineSurvivesCallerCancellation(t *testing.T) {
	p, _ := testPipeline(t, echoTailorer{})

	ctx, cancel := context.WithCancel(context.Background())
	pending := p.Start(ctx, testResumeJob(), "description")
	cancel() // closing the dialog must not abort the run

	artifact := pending.AwaitOrNull(context.Background(), 10*time.Second)
	require.NotNil(t, artifact)
	assert.FileExists(t, artifact.PDFPath)
}

func TestAwaitTimeoutReturnsNil(t *testing.T) {
	pending := newPending()
	defer close(pending.ch)

	start := time.Now()
	artifact := pending.AwaitOrNull(context.Background(), 50*time.Millisecond)

	assert.Nil(t, artifact)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPruneKeepsNewestTriples(t *testing.T) {
	p, outDir := testPipeline(t, echoTailorer{})
	require.NoError(t, os.MkdirAll(outDir, 0o755))

	stems := []string{"old_one", "mid_one", "new_one"}
	for i, stem := range stems {
		mt := time.Now().Add(time.Duration(i-3) * time.Hour)
		for _, suffix := range []string{".yaml", ".pdf", "_scores.json"} {
			path := filepath.Join(outDir, stem+suffix)
			require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
			require.NoError(t, os.Chtimes(path, mt, mt))
		}
	}

	pruned := p.Prune()
	assert.Equal(t, 1, pruned)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Len(t, names, 6, "two triples survive")
	for _, n := range names {
		assert.NotContains(t, n, "old_one", fmt.Sprintf("oldest triple should be gone, found %s", n))
	}
}

func TestDocumentValidation(t *testing.T) {
	doc, err := Parse([]byte(baseYAML))
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	t.Run("missing name", func(t *testing.T) {
		d := *doc
		d.Basics.Name = ""
		assert.Error(t, d.Validate())
	})

	t.Run("identity drift", func(t *testing.T) {
		d := *doc
		d.Basics.Email = "someone.else@example.com"
		assert.Error(t, d.CheckAgainstBase(doc))
	})

	t.Run("highlight gutting", func(t *testing.T) {
		d := *doc
		d.Experience = make([]Experience, len(doc.Experience))
		copy(d.Experience, doc.Experience)
		for i := range d.Experience {
			d.Experience[i].Highlights = nil
		}
		assert.Error(t, d.CheckAgainstBase(doc))
	})
}

func TestScoreCoverage(t *testing.T) {
	doc, err := Parse([]byte(baseYAML))
	require.NoError(t, err)

	scores := Score(doc, "Looking for Go engineer with distributed systems and Kubernetes")
	assert.Greater(t, scores.KeywordCoverage, 0.0)
	assert.Less(t, scores.KeywordCoverage, 1.0)
	assert.Contains(t, scores.MatchedKeywords, "distributed")
	assert.Contains(t, scores.MissingKeywords, "kubernetes")
}
