// Package repo 把 save&restore 的领域层级映射到 Git 仓库上。
//
// 目录布局：<base>/BeamlineSets/<path>.bms 与 <base>/Snapshots/<path>.snp，
// 每次保存、打标签或删除都对应一次提交。分支、base level 与 beamline set
// 都通过扫描仓库结构得出，没有独立的索引；存在性检查的代价与目录大小成正比。
//
// 主要组成：
//   - Manager: 读取（Branches、BaseLevels、BeamlineSets、Snapshots、Load*）
//   - 写入（Save*、TagSnapshot、DeleteBeamlineSet、CreateBranch），由全局写锁串行化
//   - 搜索（FindSnapshots 及其包装）与导入（ImportData）
//   - 远程同步（Fetch、Push、Reset）与健康检查（CheckBranchReachability 等）
package repo
