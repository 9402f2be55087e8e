package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/fathima-sithara/chat-app/internal/apperrors"
	"github.com/fathima-sithara/chat-app/internal/models"
)

const usersSheet = "Users"

var exportHeader = []interface{}{"Name", "Email", "Mobile Number"}

// ImportRow is one data row of an uploaded roster, keyed by the normalized header.
type ImportRow struct {
	Name     string
	Email    string
	MobileNo string
	Password string
}

func (r ImportRow) complete() bool {
	return r.Name != "" && r.Email != "" && r.MobileNo != "" && r.Password != ""
}

// writeUsersXLSX renders the export workbook: one "Users" sheet, header row first.
func writeUsersXLSX(users []models.User) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), usersSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(usersSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	for i, u := range users {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{u.Name, u.Email, u.MobileNo}
		if err := f.SetSheetRow(usersSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// readUserRows accepts .xlsx (first sheet) and .csv.
func readUserRows(filename string, r io.Reader) ([]ImportRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		records, err = csv.NewReader(r).ReadAll()
	default:
		return nil, apperrors.New(apperrors.ErrUnsupportedMedia, "only .xlsx and .csv files can be imported")
	}
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrValidation, "unreadable spreadsheet: %v", err)
	}
	if len(records) == 0 {
		return []ImportRow{}, nil
	}

	cols := headerIndex(records[0])
	if _, ok := cols["email"]; !ok {
		return nil, apperrors.New(apperrors.ErrValidation, "header row must contain an email column")
	}
	cell := func(rec []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := lo.Map(records[1:], func(rec []string, _ int) ImportRow {
		return ImportRow{
			Name:     cell(rec, "name"),
			Email:    cell(rec, "email"),
			MobileNo: cell(rec, "mobileno"),
			Password: cell(rec, "password"),
		}
	})
	// trailing blank lines are common in exported sheets
	return lo.Filter(rows, func(r ImportRow, _ int) bool { return r != ImportRow{} }), nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// headerIndex maps normalized column names to positions. "Mobile Number" and
// "mobileNo" both land on "mobileno".
func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
		if key == "mobilenumber" {
			key = "mobileno"
		}
		if _, dup := out[key]; !dup {
			out[key] = i
		}
	}
	return out
}

