// Package site - справочник клиентов и их лифтов.
package site

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"liftkeeper/internal/domain/gateway"
)

// Client - обслуживаемый клиент (здание).
type Client struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	BuildingName string `json:"building_name"`
	Address      string `json:"address"`
}

// Elevator - лифт клиента.
type Elevator struct {
	ID        string `json:"id" validate:"required"`
	ClientID  string `json:"client_id" validate:"required"`
	Label     string `json:"label"`
	Hydraulic bool   `json:"is_hydraulic"`
}

// Directory читает клиентов и лифты через шлюз.
type Directory struct {
	gw gateway.Gateway
}

func NewDirectory(gw gateway.Gateway) *Directory {
	return &Directory{gw: gw}
}

// Client возвращает клиента по id или gateway.ErrNotFound.
func (d *Directory) Client(ctx context.Context, id string) (*Client, error) {
	var c Client
	if err := d.one(ctx, gateway.TableClients, id, &c); err != nil {
		return nil, fmt.Errorf("client %s: %w", id, err)
	}
	return &c, nil
}

// Elevator возвращает лифт по id или gateway.ErrNotFound.
func (d *Directory) Elevator(ctx context.Context, id string) (*Elevator, error) {
	var e Elevator
	if err := d.one(ctx, gateway.TableElevators, id, &e); err != nil {
		return nil, fmt.Errorf("elevator %s: %w", id, err)
	}
	return &e, nil
}

// Elevators возвращает все лифты клиента.
func (d *Directory) Elevators(ctx context.Context, clientID string) ([]Elevator, error) {
	rows, err := d.gw.Select(ctx, gateway.TableElevators,
		gateway.Where(gateway.Eq("client_id", clientID)).OrderAsc("label"))
	if err != nil {
		return nil, fmt.Errorf("list elevators: %w", err)
	}
	return gateway.DecodeAll[Elevator](rows)
}

func (d *Directory) one(ctx context.Context, table, id string, dst any) error {
	rows, err := d.gw.Select(ctx, table, gateway.Where(gateway.Eq("id", id)).WithLimit(1))
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return gateway.ErrNotFound
	}
	return gateway.Decode(rows[0], dst)
}

// ParseQR достает id клиента из содержимого QR-кода площадки.
// Поддерживаются JSON вида {"client_id": "..."}, ссылка с последним сегментом-id и сам id.
func ParseQR(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrInvalidQR
	}

	if strings.HasPrefix(payload, "{") {
		var body struct {
			ClientID string `json:"client_id"`
		}
		if err := json.Unmarshal([]byte(payload), &body); err != nil || body.ClientID == "" {
			return "", ErrInvalidQR
		}
		return body.ClientID, nil
	}

	if i := strings.Index(payload, "://"); i >= 0 {
		rest := strings.TrimRight(payload[i+3:], "/")
		if j := strings.IndexAny(rest, "?#"); j >= 0 {
			rest = rest[:j]
		}
		parts := strings.Split(rest, "/")
		if len(parts) < 2 || parts[len(parts)-1] == "" {
			return "", ErrInvalidQR
		}
		return parts[len(parts)-1], nil
	}

	if strings.ContainsAny(payload, " /") {
		return "", ErrInvalidQR
	}
	return payload, nil
}
