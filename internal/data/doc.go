// Package data 定义 save&restore 仓库中的领域值类型。
//
// 层级关系：Branch → BaseLevel → BeamlineSet → Snapshot。
// 所有类型在返回给调用方后均视为不可变值，重新读取总是从仓库状态重建新副本。
package data
