package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"

	"yt-fetch/internal/ytdlp"
)

// formatItem is one selectable row of the interactive format picker.
type formatItem struct {
	id         string
	ext        string
	resolution string
	note       string
	size       string
}

func (i formatItem) Title() string {
	parts := []string{i.id}
	if i.resolution != "" {
		parts = append(parts, i.resolution)
	}
	if i.ext != "" {
		parts = append(parts, i.ext)
	}
	return strings.Join(parts, "  ")
}

func (i formatItem) Description() string {
	parts := make([]string, 0, 2)
	if i.note != "" {
		parts = append(parts, i.note)
	}
	if i.size != "" {
		parts = append(parts, i.size)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "  ")
}

func (i formatItem) FilterValue() string {
	return i.id + " " + i.resolution + " " + i.ext + " " + i.note
}

// parseFormats extracts picker rows from yt-dlp's --dump-json output.
// Storyboard-only entries (no video and no audio codec) are skipped.
func parseFormats(payload string) []formatItem {
	if !gjson.Valid(payload) {
		return nil
	}
	var items []formatItem
	gjson.Get(payload, "formats").ForEach(func(_, value gjson.Result) bool {
		vcodec := value.Get("vcodec").String()
		acodec := value.Get("acodec").String()
		if (vcodec == "none" || vcodec == "") && (acodec == "none" || acodec == "") {
			return true
		}
		item := formatItem{
			id:         value.Get("format_id").String(),
			ext:        value.Get("ext").String(),
			resolution: value.Get("resolution").String(),
			note:       value.Get("format_note").String(),
		}
		size := value.Get("filesize")
		if !size.Exists() {
			size = value.Get("filesize_approx")
		}
		if size.Exists() && size.Int() > 0 {
			item.size = humanize.IBytes(uint64(size.Int()))
		}
		if item.id != "" {
			items = append(items, item)
		}
		return true
	})
	return items
}

type pickerModel struct {
	list     list.Model
	selected string
	aborted  bool
}

func newPickerModel(items []formatItem) pickerModel {
	rows := make([]list.Item, len(items))
	for i, item := range items {
		rows[i] = item
	}
	l := list.New(rows, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select a format"
	l.SetShowStatusBar(false)
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(formatItem); ok {
				m.selected = item.id
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.aborted = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// pickVideoFormat fetches the format table and lets the user choose one.
// Returns the empty string when the picker is dismissed without a choice.
func pickVideoFormat(runner ytdlp.Runner, opts ytdlp.Options) (string, error) {
	base, err := opts.BaseArgs()
	if err != nil {
		return "", err
	}
	args := append(base, "--skip-download", "--dump-json", opts.URL)
	attempt := runner.Run(args, ytdlp.RunOptions{Quiet: true})
	if attempt.ExitCode != 0 {
		return "", fmt.Errorf("could not list formats (yt-dlp exit code %d)", attempt.ExitCode)
	}
	items := parseFormats(strings.TrimSpace(attempt.Stdout))
	if len(items) == 0 {
		return "", fmt.Errorf("no selectable formats found")
	}

	final, err := tea.NewProgram(newPickerModel(items)).Run()
	if err != nil {
		return "", fmt.Errorf("format picker: %w", err)
	}
	m := final.(pickerModel)
	if m.aborted {
		return "", nil
	}
	return m.selected, nil
}
