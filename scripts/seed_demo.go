// 演示数据初始化脚本
//
// 创建演示账号（管理员/教师/学生）和一份配置了全部三级辅导的测验，
// 用于本地联调。生产环境不要执行。
//
// 用法: go run scripts/seed_demo.go

package main

import (
	"log"

	"eduquiz_backend/internal/config"
	"eduquiz_backend/internal/model"
	"eduquiz_backend/internal/repository"
	"eduquiz_backend/pkg/database"
	"eduquiz_backend/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, true)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	assistRepo := repository.NewAssistanceRepository(db)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	users := []model.User{
		{Name: "演示管理员", Email: "admin@example.com", Password: string(hashed), Role: model.Admin},
		{Name: "演示教师", Email: "teacher@example.com", Password: string(hashed), Role: model.Teacher},
		{Name: "演示学生", Email: "student@example.com", Password: string(hashed), Role: model.Student},
	}
	var teacherID uint
	for i := range users {
		if existing, err := userRepo.FindByEmail(users[i].Email); err == nil {
			log.Printf("用户已存在: %s", existing.Email)
			if existing.Role == model.Teacher {
				teacherID = existing.ID
			}
			continue
		}
		if err := userRepo.Create(&users[i]); err != nil {
			log.Fatalf("创建用户失败: %v", err)
		}
		if users[i].Role == model.Teacher {
			teacherID = users[i].ID
		}
		log.Printf("创建用户: %s (%s)", users[i].Email, users[i].Role)
	}

	// 一级辅导：判断题
	l1 := &model.AssistanceLevel1Def{CreatorID: teacherID, Title: "变量与类型 基础判断"}
	l1Questions := []model.AssistanceLevel1Question{
		{Content: "Go 的局部变量可以用 := 声明", CorrectAnswer: true, Order: 1},
		{Content: "int 与 int64 在任何平台上都是同一类型", CorrectAnswer: false, Order: 2,
			Explanation: "int 的宽度取决于平台，与 int64 是不同类型"},
	}
	if err := assistRepo.CreateLevel1(l1, l1Questions); err != nil {
		log.Fatalf("创建一级辅导失败: %v", err)
	}

	// 二级辅导：问答题
	l2 := &model.AssistanceLevel2Def{CreatorID: teacherID, Title: "变量与类型 简答"}
	l2Questions := []model.AssistanceLevel2Question{
		{Content: "说明值类型和引用类型在赋值时的区别", Order: 1},
		{Content: "举例说明什么情况下应该使用指针接收者", Order: 2},
	}
	if err := assistRepo.CreateLevel2(l2, l2Questions); err != nil {
		log.Fatalf("创建二级辅导失败: %v", err)
	}

	// 三级辅导：阅读资料
	l3 := &model.AssistanceLevel3Def{
		CreatorID:   teacherID,
		Title:       "变量与类型 复习资料",
		MaterialURL: "https://go.dev/tour/basics/8",
		Content:     "请复习变量声明、零值与类型转换三个小节后再回来确认。",
	}
	if err := assistRepo.CreateLevel3(l3); err != nil {
		log.Fatalf("创建三级辅导失败: %v", err)
	}

	quiz := &model.Quiz{
		CreatorID:          teacherID,
		Title:              "变量与类型 单元测验",
		Description:        "演示用主测验，配置了全部三级辅导",
		MaxAttempts:        4,
		PassingScore:       60,
		IsPublished:        true,
		AssistanceLevel1ID: &l1.ID,
		AssistanceLevel2ID: &l2.ID,
		AssistanceLevel3ID: &l3.ID,
	}
	if err := quizRepo.Create(quiz); err != nil {
		log.Fatalf("创建测验失败: %v", err)
	}

	questions := []model.QuizQuestion{
		{QuizID: quiz.ID, Content: "下列哪个是合法的变量声明?",
			Options: `["var x int","int x","x: int","declare x"]`, CorrectAnswer: "var x int", Order: 1},
		{QuizID: quiz.ID, Content: "字符串的零值是?",
			Options: `["nil","\"\"","0","undefined"]`, CorrectAnswer: `""`, Order: 2},
	}
	if err := quizRepo.CreateQuestions(questions); err != nil {
		log.Fatalf("创建题目失败: %v", err)
	}

	log.Printf("演示数据初始化完成，测验ID=%d", quiz.ID)
}
