// cmd/client/cmd/todo/list.go
package todo

import (
	"fmt"

	"github.com/spf13/cobra"

	"todoctl/cmd/client/cmd/types"
	"todoctl/internal/app/client"
	"todoctl/internal/domain/todo"
)

// filterFlags - фильтры и сортировка, общие для list и export
type filterFlags struct {
	search string
	status string
	sort   string
	order  string
}

func (f filterFlags) query() (todo.Query, error) {
	completed, err := todo.ParseStatus(f.status)
	if err != nil {
		return todo.Query{}, err
	}

	q := todo.Query{
		Search:    f.search,
		Completed: completed,
		SortBy:    todo.SortField(f.sort),
		SortOrder: todo.SortOrder(f.order),
	}
	return q, q.Validate()
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "search in title and description")
	cmd.Flags().StringVar(&f.status, "status", "all", "completion filter (all, completed, pending)")
	cmd.Flags().StringVar(&f.sort, "sort", string(todo.SortByCreatedAt), "sort field (created_at, updated_at, title, completed)")
	cmd.Flags().StringVar(&f.order, "order", string(todo.SortDesc), "sort order (asc, desc)")
}

// pageQuery переводит номер страницы (с 1) в skip/limit.
func pageQuery(q todo.Query, page, limit, defaultLimit int) (todo.Query, error) {
	if limit == 0 {
		limit = defaultLimit
	}
	if page < 1 {
		return q, fmt.Errorf("page must be 1 or more")
	}
	q.Limit = limit
	q.Skip = (page - 1) * limit
	return q, q.Validate()
}

var (
	listFilters filterFlags
	listPage    int
	listLimit   int
	listFormat  string
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Long: `Просмотр списка задач с поиском, фильтром по статусу и сортировкой.

Поддерживается постраничный вывод через флаги --page и --limit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := authorizedApp(cmd)
		if err != nil {
			return err
		}

		q, err := listFilters.query()
		if err != nil {
			return err
		}
		if q, err = pageQuery(q, listPage, listLimit, app.Config().PageSize); err != nil {
			return err
		}

		ctx, cancel := requestContext(cmd, app)
		defer cancel()

		res, err := app.Todos().List(ctx, q)
		if err != nil {
			return failure(err, client.MsgLoadFailed)
		}

		format := listFormat
		if types.OptionsFrom(cmd.Context()).JSON {
			format = "json"
		}

		// Выводим результат
		out := cmd.OutOrStdout()
		switch format {
		case "json":
			return printJSON(out, res)
		case "table":
			printTodosTable(out, res)
		case "simple", "":
			printTodosSimple(out, res)
		default:
			return fmt.Errorf("unknown format %q (simple, table, json)", format)
		}
		return nil
	},
}

func init() {
	listFilters.register(ListCmd)
	ListCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number, starting at 1")
	ListCmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "todos per page (default PAGE_SIZE)")
	ListCmd.Flags().StringVarP(&listFormat, "format", "f", "simple", "output format (simple, table, json)")
}
