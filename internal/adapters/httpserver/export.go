package httpserver

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type table struct {
	name   string
	header []string
	rows   [][]any
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	var (
		t   *table
		err error
	)
	switch strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/export/"), "/") {
	case "customers":
		t, err = s.customersTable(r)
	case "purchases":
		t, err = s.purchasesTable(r)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	stamp := time.Now().Format("20060102")
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.csv", t.name, stamp))
		if err := writeCSV(w, t); err != nil {
			log.Error().Err(err).Str("table", t.name).Msg("export csv")
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.xlsx", t.name, stamp))
		if err := writeXLSX(w, t); err != nil {
			log.Error().Err(err).Str("table", t.name).Msg("export xlsx")
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: "formato deve ser csv ou xlsx", Field: "format"})
	}
}

func (s *Server) customersTable(r *http.Request) (*table, error) {
	list, err := s.customers.List(r.Context())
	if err != nil {
		return nil, err
	}
	t := &table{name: "clientes", header: []string{"Nome", "CPF", "Telefone", "Cadastro"}}
	for i := range list {
		c := &list[i]
		dto := s.customerDTO(c)
		t.rows = append(t.rows, []any{c.Name, dto.CPFDisplay, dto.PhoneDisplay, s.locale.FormatDate(c.CreatedAt)})
	}
	return t, nil
}

func (s *Server) purchasesTable(r *http.Request) (*table, error) {
	list, err := s.purchases.List(r.Context())
	if err != nil {
		return nil, err
	}
	t := &table{name: "compras", header: []string{"Data", "Cliente", "Forma de pagamento", "Valor"}}
	for i := range list {
		v := &list[i]
		t.rows = append(t.rows, []any{s.locale.FormatDate(v.Date), v.CustomerName, v.PaymentMethod.Label(), v.Amount})
	}
	return t, nil
}

func writeCSV(w http.ResponseWriter, t *table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		rec := make([]string, len(row))
		for i, v := range row {
			if d, ok := v.(decimal.Decimal); ok {
				rec[i] = d.StringFixed(2)
				continue
			}
			rec[i] = fmt.Sprint(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeXLSX writes amounts as numeric cells so spreadsheets can sum them.
func writeXLSX(w http.ResponseWriter, t *table) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := strings.ToUpper(t.name[:1]) + t.name[1:]
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]any, len(t.header))
	for i, h := range t.header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range t.rows {
		cells := make([]any, len(row))
		for j, v := range row {
			if d, ok := v.(decimal.Decimal); ok {
				cells[j] = d.InexactFloat64()
				continue
			}
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return f.Write(w)
}
