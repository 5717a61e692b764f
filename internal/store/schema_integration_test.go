// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/authcore/internal/store"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

var _ = Describe("Account schema", Ordered, func() {
	var (
		ctx  context.Context
		pool *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		connStr := startPostgres(ctx, GinkgoT())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)
	})

	insertAccount := func(id, email string) error {
		_, err := pool.Exec(ctx, `
			INSERT INTO accounts (id, email, password_hash, first_name, last_name)
			VALUES ($1, $2, 'hash', 'A', 'B')`, id, email)
		return err
	}

	It("seeds the role catalog", func() {
		var names []string
		rows, err := pool.Query(ctx, `SELECT name FROM roles ORDER BY name`)
		Expect(err).NotTo(HaveOccurred())
		defer rows.Close()
		for rows.Next() {
			var name string
			Expect(rows.Scan(&name)).To(Succeed())
			names = append(names, name)
		}
		Expect(names).To(Equal([]string{"ADMIN", "DEFAULT"}))
	})

	It("rejects emails differing only in case", func() {
		Expect(insertAccount("01HZX0000000000000000000A1", "case@example.com")).To(Succeed())
		err := insertAccount("01HZX0000000000000000000A2", "CASE@example.com")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("rejects duplicate role memberships", func() {
		Expect(insertAccount("01HZX0000000000000000000B1", "member@example.com")).To(Succeed())
		grant := `INSERT INTO account_roles (account_id, role_id)
			SELECT $1, id FROM roles WHERE name = 'DEFAULT'`
		_, err := pool.Exec(ctx, grant, "01HZX0000000000000000000B1")
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, grant, "01HZX0000000000000000000B1")
		Expect(pgCode(err)).To(Equal(pgerrcode.UniqueViolation))
	})

	It("drops memberships with the account", func() {
		_, err := pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, "01HZX0000000000000000000B1")
		Expect(err).NotTo(HaveOccurred())
		var n int
		Expect(pool.QueryRow(ctx,
			`SELECT count(*) FROM account_roles WHERE account_id = $1`, "01HZX0000000000000000000B1",
		).Scan(&n)).To(Succeed())
		Expect(n).To(BeZero())
	})
})
