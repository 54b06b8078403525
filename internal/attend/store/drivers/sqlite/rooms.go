package sqlite

import (
	"context"

	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/domain"
	"github.com/BalaSeethaRamanjaneyulu/IntelliAttend-sub000/internal/attend/store"
)

type roomsRepo struct {
	db dbtx
}

const roomColumns = `id, name, wifi_ssid, wifi_bssid, beacons, latitude, longitude, geofence_radius`

func scanRoom(row interface{ Scan(...any) error }) (domain.RoomProfile, error) {
	var r domain.RoomProfile
	var beacons string
	err := row.Scan(&r.ID, &r.Name, &r.WifiSSID, &r.WifiBSSID, &beacons,
		&r.Latitude, &r.Longitude, &r.GeofenceRadius)
	if err != nil {
		return domain.RoomProfile{}, err
	}
	r.Beacons = splitFields(beacons)
	return r, nil
}

func (r *roomsRepo) GetRoomByID(ctx context.Context, id string) (domain.RoomProfile, error) {
	room, err := scanRoom(r.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
	if err != nil {
		return domain.RoomProfile{}, mapNotFound(err)
	}
	return room, nil
}

func (r *roomsRepo) ListRooms(ctx context.Context) ([]domain.RoomProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.RoomProfile
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *roomsRepo) CreateRoom(ctx context.Context, room domain.RoomProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, name, wifi_ssid, wifi_bssid, beacons, latitude, longitude, geofence_radius)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.WifiSSID, room.WifiBSSID, joinFields(room.Beacons),
		room.Latitude, room.Longitude, room.GeofenceRadius)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *roomsRepo) UpdateRoom(ctx context.Context, room domain.RoomProfile) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE rooms SET name = ?, wifi_ssid = ?, wifi_bssid = ?, beacons = ?,
		 latitude = ?, longitude = ?, geofence_radius = ? WHERE id = ?`,
		room.Name, room.WifiSSID, room.WifiBSSID, joinFields(room.Beacons),
		room.Latitude, room.Longitude, room.GeofenceRadius, room.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *roomsRepo) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, roomID)
	return err
}
