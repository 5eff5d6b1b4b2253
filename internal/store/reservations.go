package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seating-backend/internal/apperr"
	"seating-backend/internal/geometry"
	"seating-backend/internal/model"
	"seating-backend/internal/parse"
	"seating-backend/internal/schedule"
)

// BookReservation validates and persists a reservation. With tables selected
// the reservation is confirmed against them; without, it is kept as a
// request until tables are assigned.
func (s *gormStore) BookReservation(ctx context.Context, req BookingRequest) (int64, error) {
	at, err := ValidateBooking(req)
	if err != nil {
		return 0, err
	}
	stamp := parse.FormatDateTime(at)

	var id int64
	err = s.runTx(ctx, "book_reservation", func(tx *gorm.DB, lk *txLocks) error {
		if err := mustExist(tx, &model.Customer{}, req.CustomerID, "customer"); err != nil {
			return err
		}
		var held int64
		if err := tx.Model(&model.Reservation{}).
			Where("customer_id = ? AND reservation_datetime = ? AND status <> ?", req.CustomerID, stamp, schedule.StatusCancelled).
			Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return apperr.New(apperr.ErrDuplicateBookingSlot,
				"customer %d already holds a reservation at %s", req.CustomerID, stamp)
		}

		res := model.Reservation{
			CustomerID:          req.CustomerID,
			NumPeople:           req.PartySize,
			NumHighchairs:       req.Highchairs,
			ReservationDatetime: stamp,
			DateCreated:         s.opts.Now().UTC(),
			Notes:               req.Notes,
			Status:              schedule.StatusRequested,
		}

		var claim *tableClaim
		if !req.Tables.Empty() {
			c, err := s.claimTables(tx, lk, req.Tables, at, req.PartySize, 0)
			if err != nil {
				return err
			}
			claim = c
			res.Status = schedule.StatusConfirmed
			res.TableSetID = &claim.tableSetID
		}

		if err := tx.Omit(clause.Associations).Create(&res).Error; err != nil {
			return err
		}
		if claim != nil {
			if err := linkTables(tx, res.ID, stamp, claim.tableIDs); err != nil {
				return err
			}
		}
		id = res.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *gormStore) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := loadReservation(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, classify(err, "get_reservation")
	}
	return res, nil
}

// CancelReservation releases the reservation's table claims immediately. The
// table links are kept as history; cancelled reservations are ignored by the
// conflict scan.
func (s *gormStore) CancelReservation(ctx context.Context, id int64) error {
	return s.transition(ctx, "cancel_reservation", id, schedule.StatusCancelled)
}

func (s *gormStore) MarkSeated(ctx context.Context, id int64) error {
	return s.transition(ctx, "mark_seated", id, schedule.StatusSeated)
}

func (s *gormStore) MarkCompleted(ctx context.Context, id int64) error {
	return s.transition(ctx, "mark_completed", id, schedule.StatusCompleted)
}

func (s *gormStore) transition(ctx context.Context, op string, id int64, to schedule.Status) error {
	return s.runTx(ctx, op, func(tx *gorm.DB, _ *txLocks) error {
		var res model.Reservation
		err := tx.Select("id", "status").First(&res, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("reservation", id)
		}
		if err != nil {
			return err
		}
		if res.Status == schedule.StatusCancelled {
			return apperr.New(apperr.ErrAlreadyCancelled, "reservation %d is already cancelled", id)
		}
		if !schedule.CanTransition(res.Status, to) {
			return apperr.New(apperr.ErrInvalidTransition, "reservation %d cannot go from %s to %s", id, res.Status, to)
		}
		return tx.Model(&model.Reservation{}).Where("id = ?", id).Update("status", to).Error
	})
}

// ReassignReservationTables swaps the reservation's tables. The conflict scan
// ignores the reservation's own claims. A requested reservation becomes
// confirmed.
func (s *gormStore) ReassignReservationTables(ctx context.Context, id int64, sel TableSelection) error {
	if sel.Empty() {
		return apperr.New(apperr.ErrEmptyTableSet, "reassignment needs at least one table")
	}
	return s.runTx(ctx, "reassign_reservation", func(tx *gorm.DB, lk *txLocks) error {
		var res model.Reservation
		err := tx.First(&res, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("reservation", id)
		}
		if err != nil {
			return err
		}
		switch {
		case res.Status == schedule.StatusCancelled:
			return apperr.New(apperr.ErrAlreadyCancelled, "reservation %d is already cancelled", id)
		case !res.Status.Reassignable():
			return apperr.New(apperr.ErrInvalidTransition, "reservation %d is %s and keeps its tables", id, res.Status)
		}

		at, err := time.ParseInLocation(parse.DateTimeLayout, res.ReservationDatetime, time.UTC)
		if err != nil {
			return fmt.Errorf("stored datetime %q of reservation %d: %w", res.ReservationDatetime, id, err)
		}
		claim, err := s.claimTables(tx, lk, sel, at, res.NumPeople, id)
		if err != nil {
			return err
		}

		if err := tx.Where("reservation_id = ?", id).Delete(&model.ReservationAtTable{}).Error; err != nil {
			return fmt.Errorf("failed to unlink tables of reservation %d: %w", id, err)
		}
		if err := linkTables(tx, id, res.ReservationDatetime, claim.tableIDs); err != nil {
			return err
		}
		updates := map[string]any{"table_set_id": claim.tableSetID}
		if res.Status == schedule.StatusRequested {
			updates["status"] = schedule.StatusConfirmed
		}
		return tx.Model(&model.Reservation{}).Where("id = ?", id).Updates(updates).Error
	})
}

// ListReservations returns reservations in [Start, End] ordered by time.
// Format is checked before the range, and the range before the horizon.
func (s *gormStore) ListReservations(ctx context.Context, q ReservationQuery) ([]model.Reservation, error) {
	start, err := parse.ParseDateTime("start", q.Start)
	if err != nil {
		return nil, err
	}
	end, err := parse.ParseDateTime("end", q.End)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, apperr.Field(apperr.ErrInvalidRange, "end", "end %s is before start %s", q.End, q.Start)
	}
	if err := s.checkHorizon(start, end); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx).
		Preload("Tables", func(db *gorm.DB) *gorm.DB { return db.Order("table_id") }).
		Preload("Customer").
		Where("reservation_datetime BETWEEN ? AND ?", parse.FormatDateTime(start), parse.FormatDateTime(end))
	if q.PartyMin != nil {
		db = db.Where("num_people >= ?", *q.PartyMin)
	}
	if q.PartyMax != nil {
		db = db.Where("num_people <= ?", *q.PartyMax)
	}

	var out []model.Reservation
	if err := db.Order("reservation_datetime, id").Find(&out).Error; err != nil {
		return nil, s.observe("list_reservations", err)
	}
	s.metrics.ObserveOp("list_reservations", "ok")
	return out, nil
}

func (s *gormStore) checkHorizon(start, end time.Time) error {
	now := s.opts.Now().UTC()
	if s.opts.HorizonPast > 0 {
		if earliest := now.Add(-s.opts.HorizonPast); start.Before(earliest) {
			return apperr.Field(apperr.ErrOutOfRange, "start",
				"start %s is before the operational horizon %s", parse.FormatDateTime(start), parse.FormatDateTime(earliest))
		}
	}
	if s.opts.HorizonFuture > 0 {
		if latest := now.Add(s.opts.HorizonFuture); end.After(latest) {
			return apperr.Field(apperr.ErrOutOfRange, "end",
				"end %s is after the operational horizon %s", parse.FormatDateTime(end), parse.FormatDateTime(latest))
		}
	}
	return nil
}

// ValidateBooking runs the checks that need no database: the date-time
// first, then the party composition. It returns the parsed date-time.
func ValidateBooking(req BookingRequest) (time.Time, error) {
	at, err := parse.ParseDateTime("reservation_datetime", req.Datetime)
	if err != nil {
		return time.Time{}, err
	}
	if err := validateParty(req.PartySize, req.Highchairs); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

func validateParty(partySize, highchairs int) error {
	if partySize < 1 {
		return apperr.Field(apperr.ErrInvalidPartyComposition, "num_people",
			"party size must be at least 1, got %d", partySize)
	}
	if highchairs < 0 || highchairs > partySize {
		return apperr.Field(apperr.ErrInvalidPartyComposition, "num_highchairs",
			"%d highchairs do not fit a party of %d", highchairs, partySize)
	}
	return nil
}

// tableClaim is the outcome of a successful conflict and capacity check.
type tableClaim struct {
	tableIDs   []int64
	tableSetID int64
}

// claimTables resolves sel to physical tables, locks them, and checks them
// against existing reservations and the party size. exclude is a reservation
// whose claims are ignored.
func (s *gormStore) claimTables(tx *gorm.DB, lk *txLocks, sel TableSelection, at time.Time, partySize int, exclude int64) (*tableClaim, error) {
	ids, linked, err := resolveSelection(tx, sel)
	if err != nil {
		return nil, err
	}
	tables, err := loadTables(tx, ids)
	if err != nil {
		return nil, err
	}
	if err := lk.Tables(ids...); err != nil {
		return nil, err
	}
	if err := s.scanConflicts(tx, ids, at, exclude); err != nil {
		return nil, err
	}

	// A named table set keeps the capacity fixed when it was built. Bare
	// tables are measured as they are now.
	var capacity geometry.Capacity
	if linked != nil {
		capacity = linked.Capacity()
	} else {
		caps := make([]geometry.Capacity, len(tables))
		for i, t := range tables {
			caps[i] = t.Capacity()
		}
		capacity = geometry.Combine(caps...)
	}
	if !geometry.CanAccommodate(capacity, partySize) {
		return nil, apperr.New(apperr.ErrInsufficientCapacity,
			"tables %v seat at most %d, party of %d", ids, capacity.MaxChairs, partySize)
	}

	if linked == nil {
		if linked, err = findSetWithMembers(tx, ids); err != nil {
			return nil, err
		}
	}
	if linked == nil {
		if linked, err = createTableSet(tx, tables, ""); err != nil {
			return nil, err
		}
	}
	return &tableClaim{tableIDs: ids, tableSetID: linked.ID}, nil
}

// resolveSelection expands table sets into their members. When the
// selection is exactly one table set, that set is returned as the link.
func resolveSelection(tx *gorm.DB, sel TableSelection) ([]int64, *model.TableSet, error) {
	ids := append([]int64(nil), sel.TableIDs...)
	var sets []*model.TableSet
	for _, setID := range uniqueSorted(sel.TableSetIDs) {
		set, err := loadTableSet(tx, setID)
		if err != nil {
			return nil, nil, err
		}
		sets = append(sets, set)
		ids = append(ids, set.TableIDs()...)
	}
	ids = uniqueSorted(ids)

	if len(sets) == 1 && len(sets[0].Members) == len(ids) {
		return ids, sets[0], nil
	}
	return ids, nil, nil
}

type claimRow struct {
	TableID             int64
	ReservationID       int64
	ReservationDatetime string
}

// scanConflicts fails with TableConflict for the lowest table id whose live
// reservations overlap a reservation starting at at.
func (s *gormStore) scanConflicts(tx *gorm.DB, tableIDs []int64, at time.Time, exclude int64) error {
	d := s.opts.ServiceDuration
	lo, hi := at, at
	if d > 0 {
		w := schedule.Window(at, d)
		lo, hi = w.Start, w.End
	}

	q := tx.Table("reservation_at_tables").
		Select("reservation_at_tables.table_id, reservation_at_tables.reservation_id, reservation_at_tables.reservation_datetime").
		Joins("JOIN reservations ON reservations.id = reservation_at_tables.reservation_id").
		Where("reservation_at_tables.table_id IN ?", tableIDs).
		Where("reservations.status <> ?", schedule.StatusCancelled).
		Where("reservation_at_tables.reservation_datetime BETWEEN ? AND ?", parse.FormatDateTime(lo), parse.FormatDateTime(hi))
	if exclude != 0 {
		q = q.Where("reservation_at_tables.reservation_id <> ?", exclude)
	}

	var rows []claimRow
	if err := q.Order("reservation_at_tables.table_id, reservation_at_tables.reservation_datetime").Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to scan table claims: %w", err)
	}
	for _, row := range rows {
		other, err := time.ParseInLocation(parse.DateTimeLayout, row.ReservationDatetime, time.UTC)
		if err != nil {
			return fmt.Errorf("stored datetime %q of reservation %d: %w", row.ReservationDatetime, row.ReservationID, err)
		}
		if schedule.Conflicts(at, other, d) {
			return apperr.TableConflict(row.TableID, parse.FormatDateTime(at))
		}
	}
	return nil
}

func linkTables(tx *gorm.DB, reservationID int64, stamp string, tableIDs []int64) error {
	links := make([]model.ReservationAtTable, len(tableIDs))
	for i, tableID := range tableIDs {
		links[i] = model.ReservationAtTable{
			ReservationID:       reservationID,
			TableID:             tableID,
			ReservationDatetime: stamp,
		}
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("failed to link tables to reservation %d: %w", reservationID, err)
	}
	return nil
}

func loadReservation(db *gorm.DB, id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := db.Preload("Tables", func(db *gorm.DB) *gorm.DB { return db.Order("table_id") }).
		Preload("Customer").
		First(&res, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("reservation", id)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
