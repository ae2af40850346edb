// Package importer loads products and vouchers from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"order-engine/internal/domain"
	productrepo "order-engine/internal/repository/product"
	voucherrepo "order-engine/internal/repository/voucher"

	"github.com/shopspring/decimal"
)

type ProductWriter interface {
	Upsert(ctx context.Context, in productrepo.UpsertInput) (*domain.Product, error)
}

type VoucherWriter interface {
	Upsert(ctx context.Context, in voucherrepo.UpsertInput) (*domain.Voucher, error)
}

// CSVImporter upserts rows from a catalogue export. The header decides the
// kind of file: a "sku" column means products, a "code" column vouchers.
//
// Products:  sku,name,price[,promo_price]
// Vouchers:  code,discount[,valid_from,valid_until]  (RFC 3339 timestamps)
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
	vouchers VoucherWriter
}

func NewCSVImporter(r io.Reader, products ProductWriter, vouchers VoucherWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1
	csvr.TrimLeadingSpace = true
	return &CSVImporter{reader: csvr, products: products, vouchers: vouchers}
}

// Run imports every row and returns how many were written. It stops at the
// first invalid row; rows before it stay imported.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var save func(ctx context.Context, line int, record []string) error
	switch {
	case has(index, "sku"):
		if i.products == nil {
			return 0, errors.New("product file given but no product writer configured")
		}
		save = func(ctx context.Context, line int, record []string) error {
			return i.saveProduct(ctx, line, record, index)
		}
	case has(index, "code"):
		if i.vouchers == nil {
			return 0, errors.New("voucher file given but no voucher writer configured")
		}
		save = func(ctx context.Context, line int, record []string) error {
			return i.saveVoucher(ctx, line, record, index)
		}
	default:
		return 0, errors.New(`unrecognised header: expected a "sku" or "code" column`)
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, fmt.Errorf("read line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}
		if err := save(ctx, line, record); err != nil {
			return imported, err
		}
		imported++
	}
}

func (i *CSVImporter) saveProduct(ctx context.Context, line int, record []string, index map[string]int) error {
	in := productrepo.UpsertInput{
		SKU:        pick(record, index, "sku"),
		Name:       pick(record, index, "name"),
		Price:      pick(record, index, "price"),
		PromoPrice: pick(record, index, "promo_price"),
	}
	if in.SKU == "" || in.Name == "" || in.Price == "" {
		return fmt.Errorf("line %d: sku, name and price are required", line)
	}
	if err := nonNegative(in.Price); err != nil {
		return fmt.Errorf("line %d: price: %w", line, err)
	}
	if in.PromoPrice != "" {
		if err := nonNegative(in.PromoPrice); err != nil {
			return fmt.Errorf("line %d: promo_price: %w", line, err)
		}
	}

	if _, err := i.products.Upsert(ctx, in); err != nil {
		return fmt.Errorf("upsert product %q: %w", in.SKU, err)
	}
	return nil
}

func (i *CSVImporter) saveVoucher(ctx context.Context, line int, record []string, index map[string]int) error {
	code := pick(record, index, "code")
	if code == "" {
		return fmt.Errorf("line %d: code is required", line)
	}
	discount, err := strconv.Atoi(pick(record, index, "discount"))
	if err != nil || discount < domain.MinVoucherDiscount || discount > domain.MaxVoucherDiscount {
		return fmt.Errorf("line %d: discount must be an integer in [%d, %d]", line, domain.MinVoucherDiscount, domain.MaxVoucherDiscount)
	}
	in := voucherrepo.UpsertInput{Code: code, Discount: discount}
	if in.ValidFrom, err = optionalTime(pick(record, index, "valid_from")); err != nil {
		return fmt.Errorf("line %d: valid_from: %w", line, err)
	}
	if in.ValidUntil, err = optionalTime(pick(record, index, "valid_until")); err != nil {
		return fmt.Errorf("line %d: valid_until: %w", line, err)
	}

	if _, err := i.vouchers.Upsert(ctx, in); err != nil {
		return fmt.Errorf("upsert voucher %q: %w", code, err)
	}
	return nil
}

func nonNegative(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	if d.IsNegative() {
		return fmt.Errorf("%s is negative", s)
	}
	return nil
}

func optionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func has(index map[string]int, key string) bool {
	_, ok := index[key]
	return ok
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
