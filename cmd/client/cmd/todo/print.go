package todo

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"unicode/utf8"

	"todoctl/internal/domain/todo"
)

const dateLayout = "2006-01-02 15:04"

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printTodosSimple(w io.Writer, res todo.ListResult) {
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No todos found")
		printPageFooter(w, res)
		return
	}

	for i, t := range res.Items {
		fmt.Fprintf(w, "%d. %s %s\n", res.Skip+i+1, checkbox(t.Completed), t.Title)
		if d := t.DescriptionText(); d != "" {
			fmt.Fprintf(w, "   %s\n", truncate(d, 70))
		}
		fmt.Fprintf(w, "   ID: %d | Created: %s\n", t.ID, t.CreatedAt.Local().Format(dateLayout))
	}
	fmt.Fprintln(w)
	printPageFooter(w, res)
}

func printTodosTable(w io.Writer, res todo.ListResult) {
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No todos found")
		printPageFooter(w, res)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tDone\tTitle\tDescription\tCreated\tUpdated\t\n")
	fmt.Fprintf(tw, "---\t---\t---\t---\t---\t---\t\n")

	for _, t := range res.Items {
		updated := "-"
		if t.UpdatedAt != nil {
			updated = t.UpdatedAt.Local().Format(dateLayout)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			t.ID,
			checkbox(t.Completed),
			truncate(t.Title, 40),
			truncate(t.DescriptionText(), 30),
			t.CreatedAt.Local().Format(dateLayout),
			updated,
		)
	}

	tw.Flush()
	fmt.Fprintln(w)
	printPageFooter(w, res)
}

func printPageFooter(w io.Writer, res todo.ListResult) {
	current, pages := res.Page()
	if pages == 0 {
		pages = 1
	}
	if current > pages {
		fmt.Fprintf(w, "Page %d, past the end (%d total)\n", current, res.Total)
		return
	}
	fmt.Fprintf(w, "Page %d of %d (%d total)\n", current, pages, res.Total)
}

func printTodo(w io.Writer, t todo.Todo) {
	fmt.Fprintf(w, "ID:          %d\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	if d := t.DescriptionText(); d != "" {
		fmt.Fprintf(w, "Description: %s\n", d)
	}
	fmt.Fprintf(w, "Completed:   %t\n", t.Completed)
	fmt.Fprintf(w, "Created:     %s\n", t.CreatedAt.Local().Format(dateLayout))
	if t.UpdatedAt != nil {
		fmt.Fprintf(w, "Updated:     %s\n", t.UpdatedAt.Local().Format(dateLayout))
	}
}

func printAnalytics(w io.Writer, a todo.Analytics) {
	fmt.Fprintf(w, "Total:           %d\n", a.Total)
	fmt.Fprintf(w, "Completed:       %d\n", a.Completed)
	fmt.Fprintf(w, "Pending:         %d\n", a.Pending)
	fmt.Fprintf(w, "Completion rate: %.2f%%\n", a.CompletionRate)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

func truncate(s string, length int) string {
	if utf8.RuneCountInString(s) <= length {
		return s
	}
	r := []rune(s)
	return string(r[:length-3]) + "..."
}
