package migrations

import (
	"encoding/json"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		jsonData := `{
			"id": "pbc_1111325129",
			"name": "payment_receipts",
			"type": "base",
			"system": false,
			"fields": [
				{
					"autogeneratePattern": "[a-z0-9]{15}",
					"hidden": false,
					"id": "text3208210256",
					"max": 15,
					"min": 15,
					"name": "id",
					"pattern": "^[a-z0-9]+$",
					"presentable": false,
					"primaryKey": true,
					"required": true,
					"system": true,
					"type": "text"
				},
				{
					"cascadeDelete": true,
					"collectionId": "pbc_0631030571",
					"hidden": false,
					"id": "relation1229536183",
					"maxSelect": 1,
					"minSelect": 0,
					"name": "payment",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "relation"
				},
				{
					"hidden": false,
					"id": "file2272968570",
					"maxSelect": 1,
					"maxSize": 5242880,
					"mimeTypes": ["image/jpeg", "image/png", "image/webp", "application/pdf"],
					"name": "receipt_image",
					"presentable": false,
					"protected": false,
					"required": true,
					"system": false,
					"thumbs": null,
					"type": "file"
				},
				{
					"hidden": false,
					"id": "json3577966875",
					"maxSize": 0,
					"name": "selected_numbers",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "json"
				},
				{
					"hidden": false,
					"id": "select3962383251",
					"maxSelect": 1,
					"name": "verification_status",
					"presentable": false,
					"required": true,
					"system": false,
					"type": "select",
					"values": ["pending", "approved", "rejected"]
				},
				{
					"hidden": false,
					"id": "date2861679146",
					"max": "",
					"min": "",
					"name": "verification_date",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "date"
				},
				{
					"cascadeDelete": false,
					"collectionId": "_pb_users_auth_",
					"hidden": false,
					"id": "relation3111246471",
					"maxSelect": 1,
					"minSelect": 0,
					"name": "verified_by",
					"presentable": false,
					"required": false,
					"system": false,
					"type": "relation"
				},
				{
					"hidden": false,
					"id": "autodate2990389176",
					"name": "created",
					"onCreate": true,
					"onUpdate": false,
					"presentable": false,
					"system": false,
					"type": "autodate"
				},
				{
					"hidden": false,
					"id": "autodate3332085495",
					"name": "updated",
					"onCreate": true,
					"onUpdate": true,
					"presentable": false,
					"system": false,
					"type": "autodate"
				}
			],
			"indexes": [
				"CREATE UNIQUE INDEX ` + "`" + `idx_payment_receipts_payment` + "`" + ` ON ` + "`" + `payment_receipts` + "`" + ` (` + "`" + `payment` + "`" + `)",
				"CREATE INDEX ` + "`" + `idx_payment_receipts_status` + "`" + ` ON ` + "`" + `payment_receipts` + "`" + ` (` + "`" + `verification_status` + "`" + `)"
			],
			"listRule": null,
			"viewRule": null,
			"createRule": null,
			"updateRule": null,
			"deleteRule": null
		}`

		collection := &core.Collection{}
		if err := json.Unmarshal([]byte(jsonData), &collection); err != nil {
			return err
		}

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("pbc_1111325129")
		if err != nil {
			return err
		}

		return app.Delete(collection)
	})
}
