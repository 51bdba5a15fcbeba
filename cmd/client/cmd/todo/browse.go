package todo

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"todoctl/internal/app/client"
	"todoctl/internal/app/client/todos"
	"todoctl/internal/domain/todo"
)

var BrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Interactive todo list",
	Long: `Интерактивный режим: список обновляется после каждой команды.

Ввод /текст ищет с задержкой, пока вы печатаете; help покажет все команды.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}

		r := newREPL(cmd.Context(), app, cmd.OutOrStdout())
		r.run(bufio.NewScanner(cmd.InOrStdin()))
		return nil
	},
}

const browseHelp = `Commands:
  /TEXT                search (debounced), / clears the search
  status all|completed|pending
  sort created_at|updated_at|title|completed
  order asc|desc
  next, prev           change page
  add TITLE            create a todo
  toggle ID            flip completion
  rm ID                delete a todo
  export json|csv [FILE]
  stats                completion statistics
  refresh              reload (applies a pending search)
  quit | exit`

// repl - интерактивный список поверх todos.Browser
type repl struct {
	ctx     context.Context
	app     *client.App
	browser *todos.Browser
	out     io.Writer

	mu   sync.Mutex
	last todos.Snapshot
}

func newREPL(ctx context.Context, app *client.App, out io.Writer) *repl {
	r := &repl{
		ctx: ctx,
		app: app,
		out: out,
	}
	r.browser = app.NewBrowser(ctx, r.show)
	return r
}

func (r *repl) run(scanner *bufio.Scanner) {
	defer r.browser.Close()

	r.browser.Start()
	r.browser.Wait()

	for {
		r.printf("todoctl> ")
		if !scanner.Scan() {
			r.printf("\n")
			return
		}
		if !r.exec(strings.TrimSpace(scanner.Text())) {
			return
		}
		// поиск загружается позже, остальные команды ждут свой список
		r.browser.Wait()
	}
}

// exec выполняет одну строку и сообщает, продолжать ли цикл.
func (r *repl) exec(line string) bool {
	if line == "" {
		return true
	}

	view := r.browser.View()

	if strings.HasPrefix(line, "/") {
		view.TypeSearch(strings.TrimPrefix(line, "/"))
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "help":
		r.printf("%s\n", browseHelp)

	case "status":
		completed, err := todo.ParseStatus(arg)
		if err != nil {
			r.fail(err, "")
			return true
		}
		view.SetStatus(completed)

	case "sort":
		f := todo.SortField(arg)
		if err := f.Validate(); err != nil || f == "" {
			r.printf("Unknown sort field %q\n", arg)
			return true
		}
		view.SetSort(f)

	case "order":
		o := todo.SortOrder(arg)
		if err := o.Validate(); err != nil || o == "" {
			r.printf("Unknown sort order %q\n", arg)
			return true
		}
		view.SetOrder(o)

	case "next":
		if !view.NextPage(r.snapshot().Result.Total) {
			r.printf("Already on the last page\n")
		}

	case "prev":
		if !view.PrevPage() {
			r.printf("Already on the first page\n")
		}

	case "add":
		if arg == "" {
			r.printf("Usage: add TITLE\n")
			return true
		}
		t, err := r.browser.Create(r.ctx, todo.CreateRequest{Title: arg})
		if err != nil {
			r.fail(err, client.MsgCreateFailed)
			return true
		}
		r.printf("Todo created successfully! ID: %d\n", t.ID)

	case "toggle":
		r.toggle(arg)

	case "rm", "delete":
		id, err := parseID(arg)
		if err != nil {
			r.fail(err, "")
			return true
		}
		if err := r.browser.Delete(r.ctx, id); err != nil {
			r.fail(err, client.MsgDeleteFailed)
			return true
		}
		r.printf("Todo deleted successfully!\n")

	case "export":
		r.export(arg)

	case "stats":
		a, err := r.app.Todos().Analytics(r.ctx)
		if err != nil {
			r.fail(err, client.MsgLoadFailed)
			return true
		}
		r.mu.Lock()
		printAnalytics(r.out, a)
		r.mu.Unlock()

	case "refresh":
		if !view.FlushSearch() {
			r.browser.Refresh()
		}

	case "quit", "exit":
		r.printf("Bye!\n")
		return false

	default:
		r.printf("Unknown command: %s (help lists commands)\n", cmd)
	}
	return true
}

func (r *repl) toggle(arg string) {
	id, err := parseID(arg)
	if err != nil {
		r.fail(err, "")
		return
	}

	current, ok := r.findOnPage(id)
	if !ok {
		t, err := r.app.Todos().Get(r.ctx, id)
		if err != nil {
			r.fail(err, client.MsgUpdateFailed)
			return
		}
		current = t
	}

	_, err = r.browser.Update(r.ctx, id, todo.UpdateRequest{Completed: todo.Bool(!current.Completed)})
	if err != nil {
		r.fail(err, client.MsgUpdateFailed)
		return
	}
	r.printf("Todo updated successfully!\n")
}

func (r *repl) export(arg string) {
	formatArg, file, _ := strings.Cut(arg, " ")
	format := todo.ExportFormat(strings.ToLower(formatArg))

	data, err := r.app.Todos().Export(r.ctx, format, r.browser.View().Query())
	if err != nil {
		r.fail(err, client.MsgExportFailed)
		return
	}

	file = strings.TrimSpace(file)
	if file == "" {
		file = "todos" + format.Extension()
	}
	if err := os.WriteFile(file, data, 0600); err != nil {
		r.printf("Error: write %s: %v\n", file, err)
		return
	}
	r.printf("Todos exported as %s: %s\n", strings.ToUpper(string(format)), file)
}

func (r *repl) findOnPage(id int) (todo.Todo, bool) {
	for _, t := range r.snapshot().Result.Items {
		if t.ID == id {
			return t, true
		}
	}
	return todo.Todo{}, false
}

// show - колбэк публикации для Browser.
func (r *repl) show(s todos.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = s
	q := s.Query

	fmt.Fprintln(r.out)
	if s.Err != nil {
		fmt.Fprintf(r.out, "Error: %s\n", client.UserMessage(s.Err, client.MsgLoadFailed))
		return
	}

	fmt.Fprintf(r.out, "-- search=%q status=%s sort=%s %s --\n", q.Search, todo.StatusOf(q.Completed), q.SortBy, q.SortOrder)
	printTodosSimple(r.out, s.Result)
}

func (r *repl) snapshot() todos.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *repl) printf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) fail(err error, fallback string) {
	msg := err.Error()
	if fallback != "" {
		msg = client.UserMessage(err, fallback)
	}
	r.printf("Error: %s\n", msg)
}
