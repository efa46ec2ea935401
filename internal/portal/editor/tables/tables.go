// Пакет tables подключает к шине команд вставку таблиц. Плагин регистрируется отдельно от
// встроенных команд, поэтому редактор без таблиц просто не вызывает Register.
package tables

import (
	"encoding/json"

	"github.com/aisa-it/portal/portal.go/internal/portal/apierrors"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/commands"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/edtypes"
	"github.com/aisa-it/portal/portal.go/internal/portal/editor/state"
)

const (
	MaxRows    = 60
	MaxColumns = 10
)

type InsertTablePayload struct {
	Rows           int  `json:"rows"`
	Columns        int  `json:"columns"`
	IncludeHeaders bool `json:"includeHeaders"`
}

// Register подключает команду insert-table. Возвращает функцию отключения.
func Register(d *commands.Dispatcher) func() {
	name := commands.InsertTable.String()
	d.RegisterDecoder(name, func(raw json.RawMessage) (any, error) {
		var p InsertTablePayload
		err := json.Unmarshal(raw, &p)
		return p, err
	})
	return d.RegisterPlugin(name, commands.PriorityEditor, insertTable)
}

func insertTable(c commands.Context, payload any) (bool, error) {
	var p InsertTablePayload
	switch v := payload.(type) {
	case InsertTablePayload:
		p = v
	case *InsertTablePayload:
		if v != nil {
			p = *v
		}
	default:
		return false, apierrors.ErrInvalidPayload.WithFormattedMessage("insert-table expects rows and columns")
	}
	if p.Rows < 1 || p.Rows > MaxRows || p.Columns < 1 || p.Columns > MaxColumns {
		return false, apierrors.ErrTableBounds.WithFormattedMessage(MaxRows, MaxColumns)
	}

	table := NewTable(p.Rows, p.Columns, p.IncludeHeaders)
	return true, c.Store.Update(func(tx *state.Tx) error {
		if err := tx.InsertNodes([]edtypes.SerializedNode{table}); err != nil {
			return err
		}
		// Каретка переносится в первую ячейку вставленной таблицы
		block := tx.BlockOf(tx.Selection().Anchor.Key)
		idx := tx.IndexOf(block)
		if idx < 1 {
			return nil
		}
		prev := tx.Children(tx.Node(block).Parent)[idx-1]
		if n := tx.Node(prev); n == nil || n.Type != edtypes.TableNode {
			return nil
		}
		row := tx.Children(prev)[0]
		cell := tx.Children(row)[0]
		tx.SetSelection(state.Caret(tx.StartPointOf(cell)))
		return nil
	})
}

// NewTable строит таблицу rows x columns с пустым параграфом в каждой ячейке.
// С заголовками первая строка получает headerState "строка".
func NewTable(rows, columns int, headers bool) edtypes.SerializedNode {
	table := edtypes.NewNode(edtypes.TableNode, edtypes.Attrs{})
	for r := range rows {
		row := edtypes.NewNode(edtypes.TableRowNode, edtypes.Attrs{})
		for range columns {
			var headerState int
			if headers && r == 0 {
				headerState = 1
			}
			cell := edtypes.NewNode(edtypes.TableCellNode, edtypes.Attrs{HeaderState: headerState, ColSpan: 1, RowSpan: 1},
				edtypes.NewParagraph())
			row.Children = append(row.Children, cell)
		}
		table.Children = append(table.Children, row)
	}
	return table
}
