package service

import (
	"context"
	"log"
	"time"
)

type CleanupService struct {
	pipeline *PipelineService
	publish  *PublishService
}

func NewCleanupService(pipeline *PipelineService, publish *PublishService) *CleanupService {
	return &CleanupService{
		pipeline: pipeline,
		publish:  publish,
	}
}

// StartCleanupScheduler 启动定时清理任务
func (s *CleanupService) StartCleanupScheduler(ctx context.Context) {
	go s.scheduleCleanup(ctx)
}

// scheduleCleanup 定时清理调度器
func (s *CleanupService) scheduleCleanup(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour) // 每天执行一次
	defer ticker.Stop()

	// 立即执行一次清理
	s.runCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("清理调度器已停止")
			return
		case <-ticker.C:
			s.runCleanup(ctx)
		}
	}
}

// runCleanup 超龄发布任务收敛为失败，软删超30天的视频物理清理
func (s *CleanupService) runCleanup(ctx context.Context) {
	log.Println("开始执行定时清理...")

	expired, err := s.publish.ExpireStale(ctx, 24*time.Hour)
	if err != nil {
		log.Printf("清理超龄发布任务失败: %v", err)
	} else if expired > 0 {
		log.Printf("收敛了 %d 个超龄发布任务", expired)
	}

	if _, err := s.pipeline.PurgeDeletedVideos(ctx, 30); err != nil {
		log.Printf("清理已删除视频失败: %v", err)
	}

	log.Println("定时清理完成")
}

// CleanupNow 立即执行清理
func (s *CleanupService) CleanupNow(ctx context.Context) error {
	if _, err := s.publish.ExpireStale(ctx, 24*time.Hour); err != nil {
		return err
	}
	_, err := s.pipeline.PurgeDeletedVideos(ctx, 30)
	return err
}
