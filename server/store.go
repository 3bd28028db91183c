package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Auth & Users

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `insert into users(email, password_hash, name) values($1,$2,$3)
		returning id, email, name, is_active, created_at`, email, passwordHash, name).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// get user creds by email, including password hash
func (s *Store) userCredsByEmail(ctx context.Context, email string) (User, string, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx, `select id, email, name, is_active, created_at, password_hash
		from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, "", ErrNotFound
	}
	return u, hash, err
}

// Authenticate verifies the user's password and returns the user if ok.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, hash, err := s.userCredsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrNotFound
	}
	if !u.IsActive {
		return User{}, errors.New("user_inactive")
	}
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, userID int64, ttl time.Duration) (string, time.Time, error) {
	// 32 random bytes, base64 URL encoded
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", time.Time{}, err
	}
	token := base64.RawURLEncoding.EncodeToString(b)
	expires := time.Now().Add(ttl)
	_, err := s.db.ExecContext(ctx, `insert into sessions(user_id, token, expires_at) values($1,$2,$3)`, userID, token, expires)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *Store) UserBySession(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `select u.id, u.email, u.name, u.is_active, u.created_at
		from sessions s join users u on u.id=s.user_id
		where s.token=$1 and s.expires_at > now()`, token).
		Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where token=$1`, token)
	return err
}

// DeleteExpiredSessions purges stale session rows; run on a schedule.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Lists

func (s *Store) CreateList(ctx context.Context, ownerID int64, name string) (TaskList, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return TaskList{}, err
	}
	defer tx.Rollback()
	var l TaskList
	err = tx.QueryRowContext(ctx, `insert into lists(name, owner_user_id) values($1,$2)
		returning id, name, color, has_time_tracking, has_due_dates, is_auto_ordered, owner_user_id, created_at`,
		name, ownerID).
		Scan(&l.ID, &l.Name, &l.Color, &l.HasTimeTracking, &l.HasDueDates, &l.IsAutoOrdered, &l.OwnerID, &l.CreatedAt)
	if err != nil {
		return TaskList{}, err
	}
	if _, err := tx.ExecContext(ctx, `insert into list_members(list_id, user_id, role) values($1,$2,$3)`, l.ID, ownerID, RoleOwner); err != nil {
		return TaskList{}, err
	}
	return l, tx.Commit()
}

func (s *Store) ListsForUser(ctx context.Context, userID int64) ([]TaskList, error) {
	rows, err := s.db.QueryContext(ctx, `select l.id, l.name, l.color, l.has_time_tracking, l.has_due_dates, l.is_auto_ordered, l.owner_user_id, l.created_at
		from lists l join list_members m on m.list_id=l.id
		where m.user_id=$1 order by l.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaskList
	for rows.Next() {
		var l TaskList
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.HasTimeTracking, &l.HasDueDates, &l.IsAutoOrdered, &l.OwnerID, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetList(ctx context.Context, id int64) (TaskList, error) {
	var l TaskList
	err := s.db.QueryRowContext(ctx, `select id, name, color, has_time_tracking, has_due_dates, is_auto_ordered, owner_user_id, created_at
		from lists where id=$1`, id).
		Scan(&l.ID, &l.Name, &l.Color, &l.HasTimeTracking, &l.HasDueDates, &l.IsAutoOrdered, &l.OwnerID, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskList{}, ErrNotFound
	}
	return l, err
}

func (s *Store) DeleteList(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from lists where id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) setListColumn(ctx context.Context, id int64, column string, value any) error {
	res, err := s.db.ExecContext(ctx, `update lists set `+column+`=$1 where id=$2`, value, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetListName(ctx context.Context, id int64, name string) error {
	return s.setListColumn(ctx, id, "name", name)
}

func (s *Store) SetListColor(ctx context.Context, id int64, color NamedColor) error {
	return s.setListColumn(ctx, id, "color", string(color))
}

func (s *Store) SetHasTimeTracking(ctx context.Context, id int64, v bool) error {
	return s.setListColumn(ctx, id, "has_time_tracking", v)
}

func (s *Store) SetHasDueDates(ctx context.Context, id int64, v bool) error {
	return s.setListColumn(ctx, id, "has_due_dates", v)
}

// SetIsAutoOrdered flips the flag and, when enabling, renumbers the
// list's items by due date immediately so clients refetch a stable order.
func (s *Store) SetIsAutoOrdered(ctx context.Context, id int64, v bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `update lists set is_auto_ordered=$1 where id=$2`, v, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if v {
		if err := renumberItemsByDue(ctx, tx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Membership

func (s *Store) IsListMember(ctx context.Context, userID, listID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from list_members where list_id=$1 and user_id=$2`, listID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) IsListOwner(ctx context.Context, userID, listID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from list_members where list_id=$1 and user_id=$2 and role=$3`, listID, userID, RoleOwner).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) AddListMember(ctx context.Context, listID, userID int64, role int) error {
	_, err := s.db.ExecContext(ctx, `insert into list_members(list_id, user_id, role) values($1,$2,$3)
		on conflict (list_id, user_id) do update set role=excluded.role`, listID, userID, role)
	return err
}

func (s *Store) RemoveListMember(ctx context.Context, listID, userID int64) error {
	res, err := s.db.ExecContext(ctx, `delete from list_members where list_id=$1 and user_id=$2`, listID, userID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, listID int64) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx, `select m.user_id, u.email, u.name, m.role
		from list_members m join users u on u.id=m.user_id
		where m.list_id=$1 order by m.role desc, u.id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) UserIDByEmail(ctx context.Context, email string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `select id from users where lower(email)=lower($1)`, email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}

// Items

func (s *Store) ItemsByList(ctx context.Context, listID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `select id, list_id, title, note, pos, due_at, tracked_seconds, completed_at, created_at
		from items where list_id=$1 order by pos, id`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ListID, &it.Title, &it.Note, &it.Pos, &it.DueAt, &it.TrackedSecs, &it.CompletedAt, &it.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) CreateItem(ctx context.Context, listID int64, title, note string, dueAt *time.Time) (Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Item{}, err
	}
	defer tx.Rollback()
	var next int64 = 1000
	_ = tx.QueryRowContext(ctx, `select coalesce(max(pos),0)+1000 from items where list_id=$1`, listID).Scan(&next)
	var it Item
	err = tx.QueryRowContext(ctx, `insert into items(list_id, title, note, pos, due_at) values($1,$2,$3,$4,$5)
		returning id, list_id, title, note, pos, due_at, tracked_seconds, completed_at, created_at`,
		listID, title, note, next, dueAt).
		Scan(&it.ID, &it.ListID, &it.Title, &it.Note, &it.Pos, &it.DueAt, &it.TrackedSecs, &it.CompletedAt, &it.CreatedAt)
	if err != nil {
		return Item{}, err
	}
	var auto bool
	if err := tx.QueryRowContext(ctx, `select is_auto_ordered from lists where id=$1`, listID).Scan(&auto); err != nil {
		return Item{}, err
	}
	if auto {
		if err := renumberItemsByDue(ctx, tx, listID); err != nil {
			return Item{}, err
		}
	}
	return it, tx.Commit()
}

func (s *Store) UpdateItem(ctx context.Context, id int64, title, note *string, pos *int64, dueAt *time.Time) error {
	if title == nil && note == nil && pos == nil && dueAt == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if title != nil {
		if _, err := tx.ExecContext(ctx, `update items set title=$1 where id=$2`, *title, id); err != nil {
			return err
		}
	}
	if note != nil {
		if _, err := tx.ExecContext(ctx, `update items set note=$1 where id=$2`, *note, id); err != nil {
			return err
		}
	}
	if pos != nil {
		if _, err := tx.ExecContext(ctx, `update items set pos=$1 where id=$2`, *pos, id); err != nil {
			return err
		}
	}
	if dueAt != nil {
		if _, err := tx.ExecContext(ctx, `update items set due_at=$1 where id=$2`, *dueAt, id); err != nil {
			return err
		}
	}
	// Re-apply due-date ordering when the list asked for it.
	var listID int64
	var auto bool
	err = tx.QueryRowContext(ctx, `select l.id, l.is_auto_ordered from lists l join items i on i.list_id=l.id where i.id=$1`, id).
		Scan(&listID, &auto)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if auto && (dueAt != nil || pos != nil) {
		if err := renumberItemsByDue(ctx, tx, listID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetItemCompleted marks or unmarks completion; completing an already
// completed item keeps its original timestamp.
func (s *Store) SetItemCompleted(ctx context.Context, id int64, done bool) error {
	res, err := s.db.ExecContext(ctx,
		`update items set completed_at = case when $2 then coalesce(completed_at, now()) else null end where id=$1`,
		id, done)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTrackedTime adds seconds to the item's running total. Callers gate
// this on the list's has_time_tracking flag.
func (s *Store) AddTrackedTime(ctx context.Context, id int64, seconds int64) error {
	res, err := s.db.ExecContext(ctx, `update items set tracked_seconds=tracked_seconds+$1 where id=$2`, seconds, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from items where id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListIDByItem resolves an item's parent list for authorization and
// event topics.
func (s *Store) ListIDByItem(ctx context.Context, itemID int64) (int64, error) {
	var listID int64
	err := s.db.QueryRowContext(ctx, `select list_id from items where id=$1`, itemID).Scan(&listID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return listID, err
}

// renumberItemsByDue rewrites item positions in due-date order, undated
// items last, keeping relative order stable via the current position.
func renumberItemsByDue(ctx context.Context, tx *sql.Tx, listID int64) error {
	rows, err := tx.QueryContext(ctx, `select id from items where list_id=$1
		order by due_at nulls last, pos, id`, listID)
	if err != nil {
		return err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	pos := int64(1000)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `update items set pos=$1 where id=$2`, pos, id); err != nil {
			return err
		}
		pos += 1000
	}
	return nil
}

// Tags

func (s *Store) TagsByList(ctx context.Context, listID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `select id, list_id, name, color from tags where list_id=$1 order by name`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.ListID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTag(ctx context.Context, listID int64, name string, color NamedColor) (Tag, error) {
	var t Tag
	err := s.db.QueryRowContext(ctx, `insert into tags(list_id, name, color) values($1,$2,$3)
		returning id, list_id, name, color`, listID, name, string(color)).
		Scan(&t.ID, &t.ListID, &t.Name, &t.Color)
	return t, err
}

func (s *Store) DeleteTag(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from tags where id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListIDByTag(ctx context.Context, tagID int64) (int64, error) {
	var listID int64
	err := s.db.QueryRowContext(ctx, `select list_id from tags where id=$1`, tagID).Scan(&listID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return listID, err
}

// AssignTag links a tag to an item. Both must belong to the same list.
func (s *Store) AssignTag(ctx context.Context, itemID, tagID int64) error {
	res, err := s.db.ExecContext(ctx, `insert into item_tags(item_id, tag_id)
		select i.id, t.id from items i join tags t on t.list_id=i.list_id
		where i.id=$1 and t.id=$2
		on conflict do nothing`, itemID, tagID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Either cross-list pair or already assigned; re-check which.
		var one int
		err := s.db.QueryRowContext(ctx, `select 1 from item_tags where item_id=$1 and tag_id=$2`, itemID, tagID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Store) UnassignTag(ctx context.Context, itemID, tagID int64) error {
	_, err := s.db.ExecContext(ctx, `delete from item_tags where item_id=$1 and tag_id=$2`, itemID, tagID)
	return err
}

func (s *Store) TagsByItem(ctx context.Context, itemID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `select t.id, t.list_id, t.name, t.color
		from tags t join item_tags it on it.tag_id=t.id
		where it.item_id=$1 order by t.name`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.ListID, &t.Name, &t.Color); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const schema = `
create table if not exists users(
	id bigserial primary key,
	email text unique not null,
	password_hash text not null default '',
	name text not null default '',
	is_active boolean not null default true,
	created_at timestamptz not null default now()
);

create table if not exists sessions(
	id bigserial primary key,
	user_id bigint not null references users(id) on delete cascade,
	token text unique not null,
	created_at timestamptz not null default now(),
	expires_at timestamptz not null
);
create index if not exists sessions_expires_idx on sessions(expires_at);

create table if not exists lists(
	id bigserial primary key,
	name text not null check (length(name) > 0),
	color text not null default 'gray',
	has_time_tracking boolean not null default false,
	has_due_dates boolean not null default false,
	is_auto_ordered boolean not null default false,
	owner_user_id bigint not null references users(id) on delete cascade,
	created_at timestamptz not null default now()
);

create table if not exists list_members(
	list_id bigint not null references lists(id) on delete cascade,
	user_id bigint not null references users(id) on delete cascade,
	role smallint not null default 1,
	primary key(list_id, user_id)
);
create index if not exists list_members_user_idx on list_members(user_id);

create table if not exists items(
	id bigserial primary key,
	list_id bigint not null references lists(id) on delete cascade,
	title text not null check (length(title) > 0),
	note text not null default '',
	pos bigint not null default 1000,
	due_at timestamptz,
	tracked_seconds bigint not null default 0,
	completed_at timestamptz,
	created_at timestamptz not null default now()
);
create index if not exists items_list_idx on items(list_id);

create table if not exists tags(
	id bigserial primary key,
	list_id bigint not null references lists(id) on delete cascade,
	name text not null check (length(name) > 0),
	color text not null default 'gray',
	unique(list_id, name)
);

create table if not exists item_tags(
	item_id bigint not null references items(id) on delete cascade,
	tag_id bigint not null references tags(id) on delete cascade,
	primary key(item_id, tag_id)
);
`
