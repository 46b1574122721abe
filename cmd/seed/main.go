package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sinfiltro/internal/model"
	"sinfiltro/internal/repository"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "sinfiltro"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	contentRepo := repository.NewContentRepo(client.Database(dbName))

	existing, err := contentRepo.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count content: %v", err)
	}
	if existing > 0 {
		fmt.Printf("Content pool already has %d items, skipping seed\n", existing)
		return
	}

	pool := starterPool()
	if err := contentRepo.InsertMany(ctx, pool); err != nil {
		log.Fatalf("Failed to insert content: %v", err)
	}

	fmt.Printf("Seeded %d content items\n", len(pool))
}

type seedItem struct {
	typ           model.ContentType
	category      model.Category
	text          string
	isGroupTarget bool
	instructions  string
}

func starterPool() []*model.GameContent {
	items := []seedItem{
		// suave
		{model.ContentQuestion, model.CategorySuave, "¿Cuál es la peor película que has visto hasta el final?", false, ""},
		{model.ContentQuestion, model.CategorySuave, "¿Qué canción te da vergüenza admitir que te encanta?", false, ""},
		{model.ContentQuestion, model.CategorySuave, "¿Cuál fue tu primer apodo y quién te lo puso?", false, ""},
		{model.ContentGroupVote, model.CategorySuave, "¿Quién del grupo llegaría tarde a su propia boda?", true, ""},
		{model.ContentGroupVote, model.CategorySuave, "¿Quién del grupo sobreviviría menos tiempo en una isla desierta?", true, ""},
		{model.ContentChallenge, model.CategorySuave, "Imita a otro jugador hasta que alguien adivine quién es.", false, "El grupo decide si lo lograste."},
		{model.ContentChallenge, model.CategorySuave, "Habla con acento inventado durante toda la siguiente ronda.", false, "El grupo decide si lo lograste."},
		{model.ContentConfession, model.CategorySuave, "Confiesa la mentira más tonta que has dicho para salir de un plan.", false, ""},
		{model.ContentHotSeat, model.CategorySuave, "El resto del grupo te hace una pregunta cada uno. Responde sin pensarlo dos veces.", false, ""},

		// atrevida
		{model.ContentQuestion, model.CategoryAtrevida, "¿Cuál es el mensaje más arriesgado que has enviado y te arrepentiste al segundo?", false, ""},
		{model.ContentQuestion, model.CategoryAtrevida, "¿A quién de este grupo stalkeaste antes de conocerle en persona?", false, ""},
		{model.ContentGroupVote, model.CategoryAtrevida, "¿Quién del grupo tiene el historial de navegación más turbio?", true, ""},
		{model.ContentGroupVote, model.CategoryAtrevida, "¿Quién del grupo mandaría un mensaje a su ex esta misma noche si bebe de más?", true, ""},
		{model.ContentChallenge, model.CategoryAtrevida, "Enseña la última foto de tu galería sin mirar cuál es.", false, "El grupo decide si lo lograste."},
		{model.ContentChallenge, model.CategoryAtrevida, "Deja que el jugador a tu derecha escriba un estado en tu red social favorita.", false, "El grupo decide si lo lograste."},
		{model.ContentConfession, model.CategoryAtrevida, "Confiesa la peor cita que has tenido, con detalles.", false, ""},
		{model.ContentHotSeat, model.CategoryAtrevida, "Cada jugador te pregunta algo sobre tu vida amorosa. No puedes pasar.", false, ""},

		// sin_filtro
		{model.ContentQuestion, model.CategorySinFiltro, "¿Qué es lo más ilegal que has hecho y nunca te pillaron?", false, ""},
		{model.ContentQuestion, model.CategorySinFiltro, "¿Cuál es el secreto que guardas y que nadie de esta sala conoce?", false, ""},
		{model.ContentGroupVote, model.CategorySinFiltro, "¿Quién del grupo sería capaz de traicionar a los demás por dinero?", true, ""},
		{model.ContentGroupVote, model.CategorySinFiltro, "¿Quién del grupo ha fingido que le gustaba alguien solo por interés?", true, ""},
		{model.ContentChallenge, model.CategorySinFiltro, "Llama a un contacto al azar y dile que le echas de menos.", false, "El grupo decide si lo lograste."},
		{model.ContentConfession, model.CategorySinFiltro, "Confiesa algo de lo que te arrepientes de verdad. Sin suavizarlo.", false, ""},
		{model.ContentHotSeat, model.CategorySinFiltro, "El grupo elige un tema prohibido y te interroga sobre él. Responde todo.", false, ""},
	}

	pool := make([]*model.GameContent, 0, len(items))
	for _, it := range items {
		pool = append(pool, &model.GameContent{
			ID:            "c_" + uuid.New().String()[:8],
			Type:          it.typ,
			Category:      it.category,
			Text:          it.text,
			IsGroupTarget: it.isGroupTarget,
			Instructions:  it.instructions,
			IsActive:      true,
		})
	}
	return pool
}
