package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sloppy/tychostore/internal/evm"
)

// StoredProtocolType is a protocol type with its row id.
type StoredProtocolType struct {
	ID int64
	evm.ProtocolType
}

// InsertProtocolType stores a protocol type and returns its id.
func (tx *Tx) InsertProtocolType(pt evm.ProtocolType) (int64, error) {
	var schema any
	if pt.AttributeSchema != nil {
		raw, err := json.Marshal(pt.AttributeSchema)
		if err != nil {
			return 0, fmt.Errorf("encode attribute schema: %w", err)
		}
		schema = string(raw)
	}
	var id int64
	err := tx.QueryRow(
		`INSERT INTO protocol_type (name, financial_type, attribute_schema, implementation)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		pt.Name, string(pt.FinancialType), schema, string(pt.Implementation),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: protocol type %s", ErrDuplicate, pt.Name)
		}
		return 0, fmt.Errorf("insert protocol type: %w", err)
	}
	return id, nil
}

// GetProtocolType fetches a protocol type by name.
func (db *DB) GetProtocolType(name string) (StoredProtocolType, bool, error) {
	return protocolTypeByName(db, name)
}

// GetProtocolType fetches a protocol type by name inside the transaction.
func (tx *Tx) GetProtocolType(name string) (StoredProtocolType, bool, error) {
	return protocolTypeByName(tx, name)
}

func protocolTypeByName(q querier, name string) (StoredProtocolType, bool, error) {
	var (
		out            StoredProtocolType
		financial, imp string
		schema         sql.NullString
	)
	err := q.QueryRow(
		`SELECT id, name, financial_type, attribute_schema, implementation FROM protocol_type WHERE name = ?`,
		name,
	).Scan(&out.ID, &out.Name, &financial, &schema, &imp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredProtocolType{}, false, nil
		}
		return StoredProtocolType{}, false, fmt.Errorf("get protocol type: %w", err)
	}
	if out.FinancialType, err = evm.ParseFinancialType(financial); err != nil {
		return StoredProtocolType{}, false, decodeErr(err)
	}
	if out.Implementation, err = evm.ParseImplementationType(imp); err != nil {
		return StoredProtocolType{}, false, decodeErr(err)
	}
	if schema.Valid {
		if err := json.Unmarshal([]byte(schema.String), &out.AttributeSchema); err != nil {
			return StoredProtocolType{}, false, fmt.Errorf("%w: attribute schema: %w", ErrDecode, err)
		}
	}
	return out, true, nil
}

// EnsureProtocolSystem returns the id of a protocol system, inserting it when missing.
func (tx *Tx) EnsureProtocolSystem(system evm.ProtocolSystem) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`INSERT INTO protocol_system (name) VALUES (?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name
		 RETURNING id`,
		string(system),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure protocol system %s: %w", system, err)
	}
	return id, nil
}

// protocolComponentRow mirrors the protocol_component table.
type protocolComponentRow struct {
	ExternalID       string
	ChainID          int64
	ProtocolTypeID   int64
	ProtocolSystemID int64
	Attributes       any
	CreatedAt        int64
}

func componentToRow(pc evm.ProtocolComponent, chainID, systemID int64, createdAt time.Time) (protocolComponentRow, error) {
	typeID, err := strconv.ParseInt(pc.ProtocolTypeID, 10, 64)
	if err != nil {
		return protocolComponentRow{}, fmt.Errorf("%w: could not parse protocol type id %q of component %s", ErrDecode, pc.ProtocolTypeID, pc.ID)
	}
	attrs, err := encodeAttributes(pc.StaticAttributes)
	if err != nil {
		return protocolComponentRow{}, err
	}
	return protocolComponentRow{
		ExternalID:       pc.ID,
		ChainID:          chainID,
		ProtocolTypeID:   typeID,
		ProtocolSystemID: systemID,
		Attributes:       attrs,
		CreatedAt:        toMicros(createdAt),
	}, nil
}

// InsertProtocolComponent stores a component with its token and contract lists.
func (tx *Tx) InsertProtocolComponent(pc evm.ProtocolComponent, createdAt time.Time) (int64, error) {
	chainID, err := tx.EnsureChain(pc.Chain)
	if err != nil {
		return 0, err
	}
	systemID, err := tx.EnsureProtocolSystem(pc.ProtocolSystem)
	if err != nil {
		return 0, err
	}
	row, err := componentToRow(pc, chainID, systemID, createdAt)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRow(
		`INSERT INTO protocol_component (chain_id, external_id, protocol_type_id, protocol_system_id, attributes, created_at_us)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		row.ChainID, row.ExternalID, row.ProtocolTypeID, row.ProtocolSystemID, row.Attributes, row.CreatedAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: protocol component %s", ErrDuplicate, pc.ID)
		}
		return 0, fmt.Errorf("insert protocol component: %w", err)
	}

	if err := tx.insertComponentAddresses(id, "token", pc.Tokens); err != nil {
		return 0, err
	}
	if err := tx.insertComponentAddresses(id, "contract", pc.ContractIDs); err != nil {
		return 0, err
	}
	return id, nil
}

func (tx *Tx) insertComponentAddresses(componentID int64, kind string, addrs []evm.Address) error {
	for i, a := range addrs {
		if _, err := tx.Exec(
			`INSERT INTO protocol_component_address (protocol_component_id, kind, position, address) VALUES (?, ?, ?, ?)`,
			componentID, kind, i, a.Bytes(),
		); err != nil {
			return fmt.Errorf("insert component %s address: %w", kind, err)
		}
	}
	return nil
}

// ListProtocolComponents returns the components of chain ordered by external id.
func (db *DB) ListProtocolComponents(chain evm.Chain) ([]evm.ProtocolComponent, error) {
	rows, err := db.Query(
		`SELECT pc.id, pc.external_id, pc.protocol_type_id, ps.name, pc.attributes
		 FROM protocol_component pc
		 JOIN chain c ON c.id = pc.chain_id
		 JOIN protocol_system ps ON ps.id = pc.protocol_system_id
		 WHERE c.name = ? AND pc.deleted_at_us IS NULL
		 ORDER BY pc.external_id`,
		chain.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list protocol components: %w", err)
	}

	type pending struct {
		id int64
		pc evm.ProtocolComponent
	}
	var list []pending
	for rows.Next() {
		var (
			p      pending
			typeID int64
			system string
			attrs  sql.NullString
		)
		if err := rows.Scan(&p.id, &p.pc.ID, &typeID, &system, &attrs); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan protocol component: %w", err)
		}
		var raw *string
		if attrs.Valid {
			raw = &attrs.String
		}
		if p.pc.StaticAttributes, err = decodeAttributes(raw); err != nil {
			rows.Close()
			return nil, err
		}
		p.pc.ProtocolTypeID = strconv.FormatInt(typeID, 10)
		p.pc.ProtocolSystem = evm.ProtocolSystem(system)
		p.pc.Chain = chain
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]evm.ProtocolComponent, 0, len(list))
	for _, p := range list {
		if p.pc.Tokens, err = componentAddresses(db, p.id, "token"); err != nil {
			return nil, err
		}
		if p.pc.ContractIDs, err = componentAddresses(db, p.id, "contract"); err != nil {
			return nil, err
		}
		out = append(out, p.pc)
	}
	return out, nil
}

func componentAddresses(q querier, componentID int64, kind string) ([]evm.Address, error) {
	rows, err := q.Query(
		`SELECT address FROM protocol_component_address
		 WHERE protocol_component_id = ? AND kind = ?
		 ORDER BY position`,
		componentID, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("list component %s addresses: %w", kind, err)
	}
	defer rows.Close()

	out := []evm.Address{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan component address: %w", err)
		}
		a, err := evm.DecodeAddress(raw, "component "+kind)
		if err != nil {
			return nil, decodeErr(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func componentID(q querier, chain evm.Chain, externalID string) (int64, bool, error) {
	var id int64
	err := q.QueryRow(
		`SELECT pc.id FROM protocol_component pc JOIN chain c ON c.id = pc.chain_id
		 WHERE c.name = ? AND pc.external_id = ?`,
		chain.String(), externalID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get protocol component %s: %w", externalID, err)
	}
	return id, true, nil
}

// InsertProtocolState records a component's state as of its stored modify
// transaction, closing the previously valid state.
func (tx *Tx) InsertProtocolState(chain evm.Chain, state evm.ProtocolState) error {
	stx, found, err := transactionByHash(tx, state.ModifyTx)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: tx %s", ErrNotFound, state.ModifyTx.Hex())
	}
	cid, found, err := componentID(tx, chain, state.ComponentID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: protocol component %s", ErrNotFound, state.ComponentID)
	}
	attrs, err := encodeAttributes(state.Attributes)
	if err != nil {
		return err
	}
	tsUS := toMicros(stx.Timestamp)
	if _, err := tx.Exec(
		`UPDATE protocol_state SET valid_to_us = ?
		 WHERE protocol_component_id = ? AND valid_to_us IS NULL`,
		tsUS, cid,
	); err != nil {
		return fmt.Errorf("close protocol state: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO protocol_state (protocol_component_id, state, modify_tx, valid_from_us) VALUES (?, ?, ?, ?)`,
		cid, attrs, stx.ID, tsUS,
	); err != nil {
		return fmt.Errorf("insert protocol state: %w", err)
	}
	return nil
}

// GetProtocolState returns the state of a component valid at version.
func (db *DB) GetProtocolState(chain evm.Chain, externalID string, version *Version) (evm.ProtocolState, bool, error) {
	ts, err := db.VersionToTS(version)
	if err != nil {
		return evm.ProtocolState{}, false, err
	}
	tsUS := toMicros(ts)
	var (
		state  sql.NullString
		txHash []byte
	)
	err = db.QueryRow(
		`SELECT ps.state, t.hash
		 FROM protocol_state ps
		 JOIN protocol_component pc ON pc.id = ps.protocol_component_id
		 JOIN chain c ON c.id = pc.chain_id
		 JOIN txn t ON t.id = ps.modify_tx
		 WHERE c.name = ? AND pc.external_id = ?
		   AND ps.valid_from_us <= ? AND (ps.valid_to_us IS NULL OR ps.valid_to_us > ?)
		 ORDER BY ps.valid_from_us DESC, ps.id DESC LIMIT 1`,
		chain.String(), externalID, tsUS, tsUS,
	).Scan(&state, &txHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return evm.ProtocolState{}, false, nil
		}
		return evm.ProtocolState{}, false, fmt.Errorf("get protocol state %s: %w", externalID, err)
	}
	out := evm.ProtocolState{ComponentID: externalID}
	var raw *string
	if state.Valid {
		raw = &state.String
	}
	if out.Attributes, err = decodeAttributes(raw); err != nil {
		return evm.ProtocolState{}, false, err
	}
	if out.ModifyTx, err = evm.DecodeHash(txHash, "tx hash"); err != nil {
		return evm.ProtocolState{}, false, decodeErr(err)
	}
	return out, true, nil
}
