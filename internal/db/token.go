package db

import (
	"encoding/json"
	"fmt"

	"github.com/sloppy/tychostore/internal/evm"
)

// tokenRow mirrors the token table.
type tokenRow struct {
	ContractID int64
	Symbol     string
	Decimals   int32
	Tax        int64
	Gas        []*int64
}

func tokenToRow(t evm.ERC20Token, contractID int64) tokenRow {
	gas := make([]*int64, len(t.Gas))
	for i, g := range t.Gas {
		if g != nil {
			v := int64(*g)
			gas[i] = &v
		}
	}
	return tokenRow{
		ContractID: contractID,
		Symbol:     t.Symbol,
		Decimals:   int32(t.Decimals),
		Tax:        int64(t.Tax),
		Gas:        gas,
	}
}

func tokenFromRow(row tokenRow, chain evm.Chain, address []byte) (evm.ERC20Token, error) {
	addr, err := evm.PadAndParseAddress(address)
	if err != nil {
		return evm.ERC20Token{}, decodeErr(err)
	}
	gas := make([]*uint64, len(row.Gas))
	for i, g := range row.Gas {
		if g != nil {
			v := uint64(*g)
			gas[i] = &v
		}
	}
	return evm.ERC20Token{
		Address:  addr,
		Symbol:   row.Symbol,
		Decimals: uint32(row.Decimals),
		Tax:      uint64(row.Tax),
		Gas:      gas,
		Chain:    chain,
	}, nil
}

// InsertToken stores token metadata for an already stored contract.
func (tx *Tx) InsertToken(t evm.ERC20Token) error {
	contract, found, err := contractRow(tx, t.Chain, t.Address)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: token contract %s on %s", ErrNotFound, t.Address.Hex(), t.Chain)
	}
	row := tokenToRow(t, contract.ID)
	gas, err := json.Marshal(row.Gas)
	if err != nil {
		return fmt.Errorf("encode token gas: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO token (contract_id, symbol, decimals, tax, gas) VALUES (?, ?, ?, ?, ?)`,
		row.ContractID, row.Symbol, row.Decimals, row.Tax, string(gas),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: token %s", ErrDuplicate, t.Address.Hex())
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// ListTokens returns the tokens of chain ordered by symbol.
func (db *DB) ListTokens(chain evm.Chain) ([]evm.ERC20Token, error) {
	rows, err := db.Query(
		`SELECT t.contract_id, t.symbol, t.decimals, t.tax, t.gas, ct.address
		 FROM token t
		 JOIN contract ct ON ct.id = t.contract_id
		 JOIN chain c ON c.id = ct.chain_id
		 WHERE c.name = ?
		 ORDER BY t.symbol, ct.address`,
		chain.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []evm.ERC20Token
	for rows.Next() {
		var (
			row     tokenRow
			gasJSON string
			address []byte
		)
		if err := rows.Scan(&row.ContractID, &row.Symbol, &row.Decimals, &row.Tax, &gasJSON, &address); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		if err := json.Unmarshal([]byte(gasJSON), &row.Gas); err != nil {
			return nil, fmt.Errorf("%w: token gas: %w", ErrDecode, err)
		}
		token, err := tokenFromRow(row, chain, address)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}
