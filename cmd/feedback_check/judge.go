package main

import (
	"fmt"

	"interview-hub/internal/domain"
)

// Scenario fija una respuesta de referencia y el rango de puntaje aceptable.
type Scenario struct {
	Name     string
	Question string
	Answer   string
	MinScore int
	MaxScore int
	// WantImprovements exige al menos una sugerencia de mejora.
	WantImprovements bool
}

type Result struct {
	Scenario string
	Score    int
	Issues   []string
}

func (r Result) Passed() bool {
	return len(r.Issues) == 0
}

func defaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:     "Strong answer",
			Question: "What is the difference between a process and a thread?",
			Answer: "A process has its own address space and OS resources; threads live inside a process " +
				"and share its memory, so they are cheaper to create and switch but need synchronization " +
				"to avoid data races. A crash in one thread can take down the whole process.",
			MinScore: 7,
			MaxScore: 10,
		},
		{
			Name:             "Vague answer",
			Question:         "How does an HTTP cache decide whether a response is fresh?",
			Answer:           "It checks if it is fresh or not.",
			MinScore:         0,
			MaxScore:         4,
			WantImprovements: true,
		},
		{
			Name:             "Wrong answer",
			Question:         "What does a SQL index do?",
			Answer:           "It deletes duplicate rows from the table automatically.",
			MinScore:         0,
			MaxScore:         3,
			WantImprovements: true,
		},
	}
}

// grade compara el feedback contra el escenario. Un feedback no estructurado siempre falla.
func grade(sc Scenario, fb domain.Feedback) Result {
	res := Result{Scenario: sc.Name, Score: fb.Score}
	if !fb.Structured {
		res.Issues = append(res.Issues, "model did not return structured JSON")
	}
	if fb.Score < sc.MinScore || fb.Score > sc.MaxScore {
		res.Issues = append(res.Issues, fmt.Sprintf("score %d outside [%d,%d]", fb.Score, sc.MinScore, sc.MaxScore))
	}
	if sc.WantImprovements && len(fb.Improvements) == 0 {
		res.Issues = append(res.Issues, "expected at least one improvement")
	}
	if fb.Summary == "" {
		res.Issues = append(res.Issues, "empty summary")
	}
	return res
}

func summarize(results []Result) (passed, total int) {
	for _, r := range results {
		if r.Passed() {
			passed++
		}
	}
	return passed, len(results)
}
