package setup

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestWizardIntroStep(t *testing.T) {
	t.Run("WithExistingConfig", func(t *testing.T) {
		model := newWizardModel(true)
		if model.step != stepIntro {
			t.Errorf("expected stepIntro, got %v", model.step)
		}

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)
		wm := newModel.(*wizardModel)
		if wm.step != stepConfigChoice {
			t.Errorf("expected stepConfigChoice, got %v", wm.step)
		}
	})

	t.Run("WithoutExistingConfig", func(t *testing.T) {
		model := newWizardModel(false)

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)
		wm := newModel.(*wizardModel)
		if wm.step != stepFeeds {
			t.Errorf("expected stepFeeds, got %v", wm.step)
		}
		if !wm.override {
			t.Error("expected override to be true")
		}
	})

	t.Run("GlobalQuit", func(t *testing.T) {
		model := newWizardModel(false)

		msg := tea.KeyMsg{Type: tea.KeyCtrlC}
		newModel, cmd := model.Update(msg)

		if cmd == nil {
			t.Error("expected quit command")
		}
		wm := newModel.(*wizardModel)
		if !wm.cancelled {
			t.Error("expected cancelled to be true")
		}
	})
}

func TestWizardConfigChoiceStep(t *testing.T) {
	t.Run("OverrideChoice", func(t *testing.T) {
		model := newWizardModel(true)
		model.step = stepConfigChoice
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.step != stepFeeds {
			t.Errorf("expected stepFeeds, got %v", wm.step)
		}
		if !wm.override {
			t.Error("expected override to be true")
		}
	})

	t.Run("KeepChoice", func(t *testing.T) {
		model := newWizardModel(true)
		model.step = stepConfigChoice
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.step != stepInterval {
			t.Errorf("expected stepInterval, got %v", wm.step)
		}
		if wm.override {
			t.Error("expected override to be false")
		}
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		model := newWizardModel(true)
		model.step = stepConfigChoice
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'O'}}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.step != stepFeeds {
			t.Errorf("expected stepFeeds, got %v", wm.step)
		}
	})
}

func TestWizardFeedsStep(t *testing.T) {
	t.Run("EnterWithFeeds", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepFeeds
		model.feedsInput.SetValue("https://example.com/feed.xml, https://test.com/feed.xml")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.step != stepTargets {
			t.Errorf("expected stepTargets, got %v", wm.step)
		}
		expected := []string{"https://example.com/feed.xml", "https://test.com/feed.xml"}
		if len(wm.feeds) != len(expected) {
			t.Fatalf("expected %d feeds, got %d", len(expected), len(wm.feeds))
		}
		for i, exp := range expected {
			if wm.feeds[i] != exp {
				t.Errorf("expected feed[%d] %q, got %q", i, exp, wm.feeds[i])
			}
		}
		if !wm.weeklyInput.Focused() {
			t.Error("expected weekly input to be focused")
		}
	})

	t.Run("EnterWithEmptyFeeds", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepFeeds
		model.feedsInput.SetValue("")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.step != stepTargets {
			t.Errorf("expected stepTargets, got %v", wm.step)
		}
		if len(wm.feeds) != 0 {
			t.Errorf("expected no feeds, got %d", len(wm.feeds))
		}
	})
}

func TestWizardTargetsStep(t *testing.T) {
	t.Run("WeeklyThenMonthly", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepTargets
		model.weeklyInput.Focus()
		model.weeklyInput.SetValue("5000")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)
		wm := newModel.(*wizardModel)
		if wm.weekly != 5000 {
			t.Errorf("expected weekly 5000, got %g", wm.weekly)
		}
		if !wm.monthlyInput.Focused() {
			t.Error("expected monthly input to be focused")
		}

		wm.monthlyInput.SetValue("$20000")
		newModel, _ = wm.Update(msg)
		wm = newModel.(*wizardModel)
		if wm.monthly != 20000 {
			t.Errorf("expected monthly 20000, got %g", wm.monthly)
		}
		if wm.step != stepServer {
			t.Errorf("expected stepServer, got %v", wm.step)
		}
	})

	t.Run("DefaultsOnEmpty", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepTargets
		model.weeklyInput.Focus()

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)
		wm := newModel.(*wizardModel)
		if wm.weekly != 10000 {
			t.Errorf("expected default weekly 10000, got %g", wm.weekly)
		}
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepTargets
		model.weeklyInput.Focus()
		model.weeklyInput.SetValue("lots")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)
		wm := newModel.(*wizardModel)
		if wm.errMsg == "" {
			t.Error("expected error message")
		}
		if wm.step != stepTargets {
			t.Errorf("expected to stay on stepTargets, got %v", wm.step)
		}
	})
}

func TestWizardIntervalStep(t *testing.T) {
	t.Run("ValidInterval", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepInterval
		model.intervalInput.Focus()
		model.intervalInput.SetValue("45")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.intervalMin != 45 {
			t.Errorf("expected interval 45, got %d", wm.intervalMin)
		}
		if wm.errMsg != "" {
			t.Errorf("expected no error message, got %q", wm.errMsg)
		}
		if wm.step != stepSummary {
			t.Errorf("expected stepSummary, got %v", wm.step)
		}
	})

	t.Run("DefaultInterval", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepInterval
		model.intervalInput.Focus()
		model.intervalInput.SetValue("")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.intervalMin != 60 {
			t.Errorf("expected default interval 60, got %d", wm.intervalMin)
		}
	})

	t.Run("InvalidInterval", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepInterval
		model.intervalInput.Focus()
		model.intervalInput.SetValue("invalid")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.errMsg != "Please enter a positive integer (minutes)." {
			t.Errorf("expected error message, got %q", wm.errMsg)
		}
		if wm.step != stepInterval {
			t.Errorf("expected to stay on stepInterval, got %v", wm.step)
		}
	})

	t.Run("NegativeInterval", func(t *testing.T) {
		model := newWizardModel(false)
		model.step = stepInterval
		model.intervalInput.Focus()
		model.intervalInput.SetValue("-5")

		msg := tea.KeyMsg{Type: tea.KeyEnter}
		newModel, _ := model.Update(msg)

		wm := newModel.(*wizardModel)
		if wm.errMsg != "Please enter a positive integer (minutes)." {
			t.Errorf("expected error message, got %q", wm.errMsg)
		}
	})
}

func TestWizardSummaryStep(t *testing.T) {
	model := newWizardModel(false)
	model.step = stepSummary

	msg := tea.KeyMsg{Type: tea.KeyEnter}
	newModel, cmd := model.Update(msg)

	if cmd == nil {
		t.Error("expected quit command")
	}
	wm := newModel.(*wizardModel)
	if wm.step != stepDone {
		t.Errorf("expected stepDone, got %v", wm.step)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input    string
		fallback float64
		expected float64
		hasError bool
	}{
		{"", 10000, 10000, false},
		{"5000", 0, 5000, false},
		{"$5000", 0, 5000, false},
		{"  2500.50  ", 0, 2500.50, false},
		{"-5", 0, 0, true},
		{"invalid", 0, 0, true},
	}

	for _, test := range tests {
		result, err := parseAmount(test.input, test.fallback)
		if test.hasError {
			if err == nil {
				t.Errorf("expected error for input %q", test.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for input %q: %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("expected %g for input %q, got %g", test.expected, test.input, result)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"a,b,c", []string{"a", "b", "c"}},
		{"a, b , c ", []string{"a", "b", "c"}},
		{"a", []string{"a"}},
		{"a,", []string{"a"}},
		{",a", []string{"a"}},
		{"a,,b", []string{"a", "b"}},
	}

	for _, test := range tests {
		result := splitCSV(test.input)
		if len(result) != len(test.expected) {
			t.Errorf("expected %d items for input %q, got %d", len(test.expected), test.input, len(result))
			continue
		}
		for i, exp := range test.expected {
			if result[i] != exp {
				t.Errorf("expected item[%d] %q for input %q, got %q", i, exp, test.input, result[i])
			}
		}
	}
}

func TestWizardCompleteFlow(t *testing.T) {
	model := newWizardModel(false)
	enter := tea.KeyMsg{Type: tea.KeyEnter}

	newModel, _ := model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepFeeds {
		t.Fatalf("expected stepFeeds, got %v", model.step)
	}

	model.feedsInput.SetValue("https://example.com/feed.xml")
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepTargets {
		t.Fatalf("expected stepTargets, got %v", model.step)
	}

	model.weeklyInput.SetValue("10000")
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	model.monthlyInput.SetValue("40000")
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepServer {
		t.Fatalf("expected stepServer, got %v", model.step)
	}

	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepAI {
		t.Fatalf("expected stepAI, got %v", model.step)
	}
	if model.serverAddr != ":8080" {
		t.Errorf("expected default server addr :8080, got %q", model.serverAddr)
	}

	model.modelInput.SetValue("gpt-4o-mini")
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepInterval {
		t.Fatalf("expected stepInterval, got %v", model.step)
	}

	model.intervalInput.SetValue("30")
	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepSummary {
		t.Fatalf("expected stepSummary, got %v", model.step)
	}

	newModel, _ = model.Update(enter)
	model = newModel.(*wizardModel)
	if model.step != stepDone {
		t.Fatalf("expected stepDone, got %v", model.step)
	}

	if len(model.feeds) != 1 || model.feeds[0] != "https://example.com/feed.xml" {
		t.Errorf("expected feed to be set, got %v", model.feeds)
	}
	if model.weekly != 10000 || model.monthly != 40000 {
		t.Errorf("expected targets 10000/40000, got %g/%g", model.weekly, model.monthly)
	}
	if model.aiModel != "gpt-4o-mini" {
		t.Errorf("expected brief model gpt-4o-mini, got %q", model.aiModel)
	}
	if model.intervalMin != 30 {
		t.Errorf("expected interval 30, got %d", model.intervalMin)
	}
}
