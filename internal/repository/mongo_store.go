package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Collection and field names follow the original document layout.
const (
	funcionesCollection = "funciones"
	salasCollection     = "salas"
	asientosCollection  = "asientos"
	peliculasCollection = "peliculas"

	occupiedField     = "Asientos_Ocupados"
	occupiedCodeField = "codigo_asiento"
	occupiedPath      = occupiedField + "." + occupiedCodeField
)

// MongoStore keeps showtimes and the room/movie catalog in MongoDB.  Seat
// mutations are single-document conditional updates, so a showtime's
// occupied set can never gain a seat twice even with concurrent writers.
type MongoStore struct {
	funciones *mongo.Collection
	salas     *mongo.Collection
	asientos  *mongo.Collection
	peliculas *mongo.Collection
}

// NewMongoStore binds the store to db's collections.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		funciones: db.Collection(funcionesCollection),
		salas:     db.Collection(salasCollection),
		asientos:  db.Collection(asientosCollection),
		peliculas: db.Collection(peliculasCollection),
	}
}

type funcionDoc struct {
	ID       bson.RawValue     `bson:"_id"`
	RoomID   bson.RawValue     `bson:"id_lugar"`
	MovieID  bson.RawValue     `bson:"id_pelicula"`
	Start    time.Time         `bson:"Date_inicio"`
	End      time.Time         `bson:"Date_fin"`
	Occupied []occupiedSeatDoc `bson:"Asientos_Ocupados"`
}

type occupiedSeatDoc struct {
	Code   string `bson:"codigo_asiento"`
	Status string `bson:"estado"`
}

type salaDoc struct {
	ID   bson.RawValue `bson:"_id"`
	Name string        `bson:"nombre"`
}

type asientoDoc struct {
	RoomID bson.RawValue `bson:"id_lugar"`
	Codes  bson.RawValue `bson:"codigo"`
}

type peliculaDoc struct {
	ID       bson.RawValue `bson:"_id"`
	Title    string        `bson:"titulo"`
	Genre    string        `bson:"genero"`
	Duration bson.RawValue `bson:"duracion"`
	Synopsis string        `bson:"sinopsis"`
}

// docID queries 24-char hex ids as ObjectIDs and everything else verbatim.
func docID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// idString renders an ObjectID or string id as the service's opaque string.
func idString(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeObjectID:
		return v.ObjectID().Hex()
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeInt32, bson.TypeInt64:
		return strconv.FormatInt(v.AsInt64(), 10)
	}
	return ""
}

// seatCodesFrom accepts "A1", ["A1","A2"] or [{codigo_asiento:"A1"}].
func seatCodesFrom(v bson.RawValue) []string {
	switch v.Type {
	case bson.TypeString:
		return []string{v.StringValue()}
	case bson.TypeArray:
		vals, err := v.Array().Values()
		if err != nil {
			return nil
		}
		out := make([]string, 0, len(vals))
		for _, e := range vals {
			switch e.Type {
			case bson.TypeString:
				out = append(out, e.StringValue())
			case bson.TypeEmbeddedDocument:
				if c, ok := e.Document().Lookup(occupiedCodeField).StringValueOK(); ok {
					out = append(out, c)
				}
			}
		}
		return out
	}
	return nil
}

func durationMinutes(v bson.RawValue) int {
	switch v.Type {
	case bson.TypeInt32, bson.TypeInt64:
		return int(v.AsInt64())
	case bson.TypeDouble:
		return int(v.Double())
	case bson.TypeString:
		n, _ := strconv.Atoi(v.StringValue())
		return n
	}
	return 0
}

func (d funcionDoc) toModel() model.Showtime {
	st := model.Showtime{
		ID:            idString(d.ID),
		RoomID:        idString(d.RoomID),
		MovieID:       idString(d.MovieID),
		StartTime:     d.Start.UTC(),
		EndTime:       d.End.UTC(),
		OccupiedSeats: make([]model.OccupiedSeat, 0, len(d.Occupied)),
	}
	for _, o := range d.Occupied {
		st.OccupiedSeats = append(st.OccupiedSeats, model.OccupiedSeat{SeatCode: o.Code, Status: model.SeatStatus(o.Status)})
	}
	return st
}

// Get loads a showtime by id.
func (m *MongoStore) Get(ctx context.Context, id string) (*model.Showtime, error) {
	var doc funcionDoc
	err := m.funciones.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrShowtimeNotFound, "showtime %s", id)
		}
		return nil, errors.Wrap(err, "find showtime")
	}
	st := doc.toModel()
	return &st, nil
}

// List returns every showtime ordered by start time.
func (m *MongoStore) List(ctx context.Context) ([]model.Showtime, error) {
	cur, err := m.funciones.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "Date_inicio", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find showtimes")
	}
	var docs []funcionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode showtimes")
	}
	out := make([]model.Showtime, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// Insert stores a new showtime document; used for seeding and tests.
func (m *MongoStore) Insert(ctx context.Context, st model.Showtime) error {
	occupied := make([]occupiedSeatDoc, 0, len(st.OccupiedSeats))
	for _, o := range st.OccupiedSeats {
		occupied = append(occupied, occupiedSeatDoc{Code: o.SeatCode, Status: string(o.Status)})
	}
	_, err := m.funciones.InsertOne(ctx, bson.M{
		"_id":         docID(st.ID),
		"id_lugar":    docID(st.RoomID),
		"id_pelicula": docID(st.MovieID),
		"Date_inicio": st.StartTime,
		"Date_fin":    st.EndTime,
		occupiedField: occupied,
	})
	return errors.Wrap(err, "insert showtime")
}

// InsertRoom stores a room and one asientos document holding its codes.
func (m *MongoStore) InsertRoom(ctx context.Context, l model.SeatLayout) error {
	if _, err := m.salas.InsertOne(ctx, bson.M{"_id": docID(l.ID), "nombre": l.Name}); err != nil {
		return errors.Wrap(err, "insert room")
	}
	_, err := m.asientos.InsertOne(ctx, bson.M{"id_lugar": docID(l.ID), "codigo": l.Seats})
	return errors.Wrap(err, "insert room seats")
}

// AddOccupied pushes every seat in one conditional update that only matches
// while none of the codes is occupied.
func (m *MongoStore) AddOccupied(ctx context.Context, id string, seats []model.OccupiedSeat) error {
	if len(seats) == 0 {
		return nil
	}
	codes := seatCodes(seats)
	if code, ok := repeatedCode(codes); ok {
		return &SeatConflictError{Code: code}
	}
	docs := make([]occupiedSeatDoc, 0, len(seats))
	for _, s := range seats {
		docs = append(docs, occupiedSeatDoc{Code: s.SeatCode, Status: string(s.Status)})
	}

	filter := bson.M{"_id": docID(id), occupiedPath: bson.M{"$nin": codes}}
	update := bson.M{"$push": bson.M{occupiedField: bson.M{"$each": docs}}}
	res, err := m.funciones.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrap(err, "push occupied seats")
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the showtime is gone or a seat was taken.
	st, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if code, ok := firstConflict(codes, st.OccupiedSet()); ok {
		return &SeatConflictError{Code: code}
	}
	return errors.Wrapf(ErrSeatConflict, "showtime %s changed concurrently", id)
}

// RemoveOccupied pulls the codes only while all of them are occupied.
// It returns 0 when the condition did not hold.
func (m *MongoStore) RemoveOccupied(ctx context.Context, id string, codes []string) (int, error) {
	codes = uniqueCodes(codes)
	if len(codes) == 0 {
		return 0, nil
	}
	filter := bson.M{"_id": docID(id), occupiedPath: bson.M{"$all": codes}}
	update := bson.M{"$pull": bson.M{occupiedField: bson.M{occupiedCodeField: bson.M{"$in": codes}}}}
	res, err := m.funciones.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, errors.Wrap(err, "pull occupied seats")
	}
	if res.MatchedCount == 0 {
		n, err := m.funciones.CountDocuments(ctx, bson.M{"_id": docID(id)})
		if err != nil {
			return 0, errors.Wrap(err, "count showtime")
		}
		if n == 0 {
			return 0, errors.Wrapf(ErrShowtimeNotFound, "showtime %s", id)
		}
		return 0, nil
	}
	if res.ModifiedCount == 0 {
		return 0, nil
	}
	return len(codes), nil
}

// GetLayout resolves a room and gathers its seat codes from asientos.
func (m *MongoStore) GetLayout(ctx context.Context, roomID string) (*model.SeatLayout, error) {
	var sala salaDoc
	err := m.salas.FindOne(ctx, bson.M{"_id": docID(roomID)}).Decode(&sala)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrRoomNotFound, "room %s", roomID)
		}
		return nil, errors.Wrap(err, "find room")
	}
	cur, err := m.asientos.Find(ctx, bson.M{"id_lugar": docID(roomID)})
	if err != nil {
		return nil, errors.Wrap(err, "find room seats")
	}
	var docs []asientoDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode room seats")
	}
	l := model.SeatLayout{ID: idString(sala.ID), Name: sala.Name, Seats: []string{}}
	for _, d := range docs {
		l.Seats = append(l.Seats, seatCodesFrom(d.Codes)...)
	}
	return &l, nil
}

// ListRooms returns every room with its seats.
func (m *MongoStore) ListRooms(ctx context.Context) ([]model.SeatLayout, error) {
	cur, err := m.salas.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find rooms")
	}
	var salas []salaDoc
	if err := cur.All(ctx, &salas); err != nil {
		return nil, errors.Wrap(err, "decode rooms")
	}
	seatCur, err := m.asientos.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "find seats")
	}
	var seats []asientoDoc
	if err := seatCur.All(ctx, &seats); err != nil {
		return nil, errors.Wrap(err, "decode seats")
	}
	byRoom := map[string][]string{}
	for _, d := range seats {
		rid := idString(d.RoomID)
		byRoom[rid] = append(byRoom[rid], seatCodesFrom(d.Codes)...)
	}
	out := make([]model.SeatLayout, 0, len(salas))
	for _, s := range salas {
		id := idString(s.ID)
		codes := byRoom[id]
		if codes == nil {
			codes = []string{}
		}
		out = append(out, model.SeatLayout{ID: id, Name: s.Name, Seats: codes})
	}
	return out, nil
}

func (d peliculaDoc) toModel() model.Movie {
	return model.Movie{
		ID:          idString(d.ID),
		Title:       d.Title,
		Genre:       d.Genre,
		DurationMin: durationMinutes(d.Duration),
		Synopsis:    d.Synopsis,
	}
}

// ListMovies returns the movie catalog ordered by title.
func (m *MongoStore) ListMovies(ctx context.Context) ([]model.Movie, error) {
	cur, err := m.peliculas.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "titulo", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find movies")
	}
	var docs []peliculaDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode movies")
	}
	out := make([]model.Movie, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toModel())
	}
	return out, nil
}

// GetMovie returns one catalog movie.
func (m *MongoStore) GetMovie(ctx context.Context, id string) (*model.Movie, error) {
	var doc peliculaDoc
	err := m.peliculas.FindOne(ctx, bson.M{"_id": docID(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrMovieNotFound, "movie %s", id)
		}
		return nil, errors.Wrap(err, "find movie")
	}
	mv := doc.toModel()
	return &mv, nil
}
