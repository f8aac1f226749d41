//go:build ignore

// Package main generates a synthetic document corpus for benchmarking the
// indexer and retriever.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 500, "Number of documents to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	minParas  = flag.Int("min-paras", 3, "Minimum paragraphs per document")
	maxParas  = flag.Int("max-paras", 20, "Maximum paragraphs per document")
)

// Sentence pools per language. The English pool dominates so retrieval
// benchmarks exercise the language filter against a realistic skew.
var englishSentences = []string{
	"The quarterly report summarizes revenue across all regional offices.",
	"Maintenance windows are scheduled on the first Sunday of each month.",
	"Applicants must submit the signed form before the stated deadline.",
	"The committee reviewed the proposal and requested two amendments.",
	"Storage capacity was expanded to accommodate the archive migration.",
	"Employees should report hardware failures through the service desk.",
	"The warranty covers defects in materials for a period of two years.",
	"A follow-up meeting was arranged to discuss the outstanding items.",
	"The survey results indicate a steady increase in customer satisfaction.",
	"All invoices are processed within five business days of receipt.",
	"The handbook describes the escalation path for security incidents.",
	"Travel reimbursements require itemized receipts for every expense.",
	"The laboratory maintains calibration records for each instrument.",
	"Contract renewals are negotiated during the final quarter of the year.",
	"The river level is monitored hourly during the flood season.",
}

var germanSentences = []string{
	"Der Jahresbericht wurde dem Vorstand zur Genehmigung vorgelegt.",
	"Die Wartungsarbeiten finden am ersten Sonntag des Monats statt.",
	"Alle Mitarbeiter werden gebeten, die neuen Richtlinien zu beachten.",
	"Die Rechnung ist innerhalb von vierzehn Tagen zu begleichen.",
	"Das Protokoll der Sitzung wird allen Teilnehmern zugesandt.",
	"Die Garantie umfasst Materialfehler für die Dauer von zwei Jahren.",
	"Der Antrag muss vor Ablauf der Frist eingereicht werden.",
	"Die Ergebnisse der Umfrage zeigen eine deutliche Verbesserung.",
}

var frenchSentences = []string{
	"Le rapport trimestriel présente les résultats de chaque région.",
	"Les travaux de maintenance sont prévus le premier dimanche du mois.",
	"La facture doit être réglée dans un délai de trente jours.",
	"Le comité a examiné la proposition et demandé deux modifications.",
	"Les résultats de l'enquête montrent une amélioration constante.",
	"La garantie couvre les défauts de fabrication pendant deux ans.",
}

var topics = []string{
	"annual-report", "maintenance-plan", "meeting-minutes", "invoice-policy",
	"security-handbook", "travel-guidelines", "calibration-log", "survey-results",
	"contract-summary", "incident-review", "migration-notes", "warranty-terms",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d documents in %s...\n", *numFiles, *outputDir)

	generated := 0
	for i := 0; i < *numFiles; i++ {
		var err error
		switch {
		case i%10 == 9:
			err = writeDoc(rng, i, ".md", frenchSentences)
		case i%5 == 4:
			err = writeDoc(rng, i, ".txt", germanSentences)
		case i%3 == 2:
			err = writeDoc(rng, i, ".md", englishSentences)
		default:
			err = writeDoc(rng, i, ".txt", englishSentences)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating document %d: %v\n", i, err)
			continue
		}
		generated++
	}

	fmt.Printf("Generated %d documents successfully.\n", generated)
}

func writeDoc(rng *rand.Rand, index int, ext string, sentences []string) error {
	topic := topics[rng.Intn(len(topics))]
	paras := *minParas + rng.Intn(*maxParas-*minParas+1)

	var b strings.Builder
	if ext == ".md" {
		fmt.Fprintf(&b, "# %s %d\n\n", strings.ReplaceAll(topic, "-", " "), index)
	}
	for p := 0; p < paras; p++ {
		if ext == ".md" && p > 0 && p%4 == 0 {
			fmt.Fprintf(&b, "## Section %d\n\n", p/4)
		}
		n := 2 + rng.Intn(5)
		for s := 0; s < n; s++ {
			b.WriteString(sentences[rng.Intn(len(sentences))])
			b.WriteByte(' ')
		}
		b.WriteString("\n\n")
	}

	name := fmt.Sprintf("%s-%04d%s", topic, index, ext)
	return os.WriteFile(filepath.Join(*outputDir, name), []byte(b.String()), 0644)
}
