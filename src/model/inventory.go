package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/avinm/ledgerdesk/src/models"
	"github.com/shopspring/decimal"
)

func scanInventoryItem(row interface{ Scan(...any) error }) (*models.InventoryItem, error) {
	var item models.InventoryItem
	var purchase, sale, opening, stock, minStock string
	err := row.Scan(&item.ID, &item.Name, &item.Unit, &purchase, &sale, &opening, &stock, &minStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if item.PurchasePrice, err = parseDec(purchase, "inventory_items.purchase_price"); err != nil {
		return nil, err
	}
	if item.SalePrice, err = parseDec(sale, "inventory_items.sale_price"); err != nil {
		return nil, err
	}
	if item.OpeningStock, err = parseDec(opening, "inventory_items.opening_stock"); err != nil {
		return nil, err
	}
	if item.Stock, err = parseDec(stock, "inventory_items.stock"); err != nil {
		return nil, err
	}
	if item.MinStock, err = parseDec(minStock, "inventory_items.min_stock"); err != nil {
		return nil, err
	}
	return &item, nil
}

func CreateInventoryItem(db DBTX, item *models.InventoryItem) error {
	_, err := db.Exec(`
	INSERT INTO inventory_items (id, name, unit, purchase_price, sale_price, opening_stock, stock, min_stock, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Unit, item.PurchasePrice.String(), item.SalePrice.String(),
		item.OpeningStock.String(), item.Stock.String(), item.MinStock.String(), time.Now(), time.Now())
	return err
}

func GetInventoryItemByID(db DBTX, id string) (*models.InventoryItem, error) {
	row := db.QueryRow(`
	SELECT id, name, unit, purchase_price, sale_price, opening_stock, stock, min_stock
	FROM inventory_items WHERE id = ?`, id)
	return scanInventoryItem(row)
}

func ListInventoryItems(db DBTX) ([]models.InventoryItem, error) {
	rows, err := db.Query(`
	SELECT id, name, unit, purchase_price, sale_price, opening_stock, stock, min_stock
	FROM inventory_items ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.InventoryItem{}
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func UpdateInventoryItem(db DBTX, item *models.InventoryItem) error {
	res, err := db.Exec(`
	UPDATE inventory_items
	SET name = ?, unit = ?, purchase_price = ?, sale_price = ?, opening_stock = ?, stock = ?, min_stock = ?, updated_at = ?
	WHERE id = ?`,
		item.Name, item.Unit, item.PurchasePrice.String(), item.SalePrice.String(),
		item.OpeningStock.String(), item.Stock.String(), item.MinStock.String(), time.Now(), item.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a signed quantity delta to an item's stock level.
// Missing ids are silent no-ops, same as balance adjustments.
func AdjustStock(db DBTX, id string, delta decimal.Decimal) error {
	if id == "" || delta.IsZero() {
		return nil
	}
	item, err := GetInventoryItemByID(db, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = db.Exec(`UPDATE inventory_items SET stock = ?, updated_at = ? WHERE id = ?`,
		item.Stock.Add(delta).String(), time.Now(), id)
	return err
}

func DeleteInventoryItem(db DBTX, id string) error {
	res, err := db.Exec(`DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
