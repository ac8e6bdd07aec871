package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"dunning/api/handler"
	"dunning/api/router"
	"dunning/job"
	"dunning/logic/chat"
	"dunning/logic/classify"
	"dunning/service"
	"dunning/storage/es"
	"dunning/storage/postgres"
	"dunning/vars"
)

func main() {
	ctx := context.Background()

	// 1. DB
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		vars.PGHOST, vars.PGUSER, vars.PGPWD, vars.PGDB, vars.PGPORT)
	db, err := postgres.InitDB(dsn)
	if err != nil {
		panic(err)
	}

	// 2. Case repository
	repo := postgres.NewCaseRepo(db)
	if err := repo.AutoMigrate(); err != nil {
		panic(err)
	}

	// 3. Chat model (shared by classifier and tone adviser)
	chatModel, err := chat.NewChatModel(ctx)
	if err != nil {
		panic(err)
	}
	classifier := classify.NewEmailClassifier(chatModel)
	adviser := service.NewLLMAdviser(chatModel)

	// 4. Event audit sink
	events, err := es.NewCaseEventIndexer([]string{vars.ESADDR}, vars.EventsIndex)
	if err != nil {
		panic(err)
	}

	// 5. Services
	cycleSvc := service.NewCycleService(repo, classifier, adviser, events)
	actionSvc := service.NewActionService(repo, events)

	// 6. Scheduler
	job.StartCronJobs(repo, cycleSvc)

	// 7. Web server
	caseHandler := handler.NewCaseHandler(cycleSvc, actionSvc)
	r := gin.Default()
	router.RegisterRoutes(r, caseHandler)

	log.Println("Server running on", vars.HTTPADDR)
	if err := r.Run(vars.HTTPADDR); err != nil {
		panic(err)
	}
}
