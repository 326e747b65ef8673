// Package datarecording stores simulation records (traces, profile snapshots)
// into SQLite tables whose columns mirror the fields of Go structs.
package datarecording

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table whose columns are the fields of the
	// sample entry. The sample entry must be a flat struct.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables created by the recorder,
	// sorted by name.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()

	// Close flushes and closes the database connection.
	Close()
}

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteWriter is the DataRecorder that writes data into a SQLite database.
type SQLiteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// New creates a DataRecorder that writes to `path.sqlite3`. If path is empty,
// a unique name is generated. The recorder is flushed at program exit.
func New(path string) *SQLiteWriter {
	w := NewSQLiteWriter(path)
	w.Init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewSQLiteWriter creates a writer without opening the database. Call Init
// before use.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

// NewWithDB creates a new DataRecorder with an already opened database.
func NewWithDB(db *sql.DB) *SQLiteWriter {
	w := &SQLiteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// Init establishes a connection to the database.
func (w *SQLiteWriter) Init() {
	if w.dbName == "" {
		w.dbName = "linecache_recording_" + xid.New().String()
	}

	filename := w.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		log.Panicf("file %s already exists", filename)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		log.Panic(err)
	}

	if err := db.Ping(); err != nil {
		log.Panic(err)
	}

	w.DB = db
}

// Filename returns the SQLite file the writer writes to.
func (w *SQLiteWriter) Filename() string {
	return w.dbName + ".sqlite3"
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func entryMustBeFlatStruct(entry any) {
	t := reflect.TypeOf(entry)
	if t.Kind() != reflect.Struct {
		log.Panicf("entry of type %s is not a struct", t)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || !isAllowedKind(field.Type.Kind()) {
			log.Panicf("field %s of %s cannot be recorded", field.Name, t)
		}
	}
}

// CreateTable creates a new table.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) {
	w.lock.Lock()
	defer w.lock.Unlock()

	entryMustBeFlatStruct(sampleEntry)

	if _, exists := w.tables[tableName]; exists {
		log.Panicf("table %s already exists", tableName)
	}

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	w.mustExecute(
		"CREATE TABLE " + tableName + " (\n\t" + fields + "\n);")

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

// InsertData buffers an entry. The buffer is flushed when it grows beyond
// the batch size.
func (w *SQLiteWriter) InsertData(tableName string, entry any) {
	w.lock.Lock()

	t, exists := w.tables[tableName]
	if !exists {
		w.lock.Unlock()
		log.Panicf("table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		w.lock.Unlock()
		log.Panicf("entry of type %s does not match table %s",
			reflect.TypeOf(entry), tableName)
	}

	t.entries = append(t.entries, entry)
	w.entryCount++
	full := w.entryCount >= w.batchSize

	w.lock.Unlock()

	if full {
		w.Flush()
	}
}

// ListTables returns the tables that the writer has created.
func (w *SQLiteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	names := make([]string, 0, len(w.tables))
	for name := range w.tables {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Flush writes all the buffered entries in one transaction.
func (w *SQLiteWriter) Flush() {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.entryCount == 0 {
		return
	}

	w.mustExecute("BEGIN TRANSACTION")

	for name, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		w.insertEntries(name, t)
		t.entries = nil
	}

	w.mustExecute("COMMIT TRANSACTION")

	w.entryCount = 0
}

func (w *SQLiteWriter) insertEntries(name string, t *table) {
	placeholders := make([]string, t.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := w.Prepare(
		"INSERT INTO " + name +
			" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		log.Panic(err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		_, err := stmt.Exec(structs.Values(entry)...)
		if err != nil {
			log.Panic(err)
		}
	}
}

// Close flushes the buffered entries and closes the database.
func (w *SQLiteWriter) Close() {
	w.Flush()

	err := w.DB.Close()
	if err != nil {
		log.Panic(err)
	}
}

func (w *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		log.Panicf("failed to execute %q: %v", query, err)
	}

	return res
}
